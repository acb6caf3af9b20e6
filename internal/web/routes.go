package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-grouper/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	clusterHandler := handlers.NewClusterHandler(s.config, s.logger)
	imagesHandler := handlers.NewImagesHandler(s.config, s.deps.Pipeline, s.deps.Fetcher, s.deps.Hasher, s.deps.Store, s.logger)
	uploadHandler := handlers.NewUploadHandler(s.deps.Store, s.logger)
	foodHandler := handlers.NewFoodHandler(s.deps.Detector, s.logger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		// Clustering of precomputed fingerprints
		r.Post("/compare", clusterHandler.Compare)
		r.Post("/palettes", clusterHandler.Palettes)
		r.Post("/cluster", clusterHandler.Cluster)

		// Server-side fingerprinting
		r.Post("/hash", imagesHandler.Hash)
		r.Post("/color", imagesHandler.Color)
		r.Post("/processImages", imagesHandler.ProcessImages)

		r.Post("/upload", uploadHandler.Upload)
	})

	s.router.Get("/media/{name}", uploadHandler.Media)
	s.router.Post("/detectFood", foodHandler.DetectFood)
}
