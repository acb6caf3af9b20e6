package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-grouper/internal/album"
	"github.com/kozaktomas/photo-grouper/internal/cluster"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Web     WebConfig     `yaml:"web"`
	Cluster ClusterConfig `yaml:"cluster"`
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Hash    HashConfig    `yaml:"hash"`
	Palette PaletteConfig `yaml:"palette"`
	Labels  LabelsConfig  `yaml:"labels"`
	Albums  AlbumsConfig  `yaml:"albums"`
	Log     LogConfig     `yaml:"log"`
}

type WebConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // extra CORS origins, localhost is always allowed
	BodyLimit      int64         `yaml:"body_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ClusterConfig mirrors cluster.Config so it can be read from YAML.
type ClusterConfig struct {
	HashBits            int     `yaml:"hash_bits"`
	SimilarityThreshold int     `yaml:"similarity_threshold"`
	ColorThreshold      float64 `yaml:"color_threshold"`
	BucketSize          int     `yaml:"bucket_size"`
	BucketWithTone      bool    `yaml:"bucket_with_tone"`
	Policy              string  `yaml:"policy"`
	ColorStrategy       string  `yaml:"color_strategy"`
}

// Engine converts the section into an engine configuration.
func (c ClusterConfig) Engine() cluster.Config {
	return cluster.Config{
		HashBits:            c.HashBits,
		SimilarityThreshold: c.SimilarityThreshold,
		ColorThreshold:      c.ColorThreshold,
		BucketSize:          c.BucketSize,
		BucketWithTone:      c.BucketWithTone,
		Policy:              cluster.Policy(c.Policy),
		ColorStrategy:       cluster.ColorStrategyKind(c.ColorStrategy),
	}
}

type StorageConfig struct {
	Backend      string `yaml:"backend"`    // local or sql
	Dir          string `yaml:"dir"`        // local backend root
	PublicURL    string `yaml:"public_url"` // prefix for returned object URLs
	Driver       string `yaml:"driver"`     // postgres, mysql or sqlite3
	DatabaseURL  string `yaml:"database_url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	Backoff     time.Duration `yaml:"backoff"`
	Concurrency int           `yaml:"concurrency"`
	MaxBytes    int64         `yaml:"max_bytes"`
}

type HashConfig struct {
	Algorithm string `yaml:"algorithm"` // phash, dhash or ahash
}

type PaletteConfig struct {
	Size int `yaml:"size"`
}

type LabelsConfig struct {
	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIToken  string `yaml:"-"`
	Language     string `yaml:"language"` // target language for food labels
}

type AlbumsConfig struct {
	Duplicate string `yaml:"duplicate"`
	Similar   string `yaml:"similar"`
	Moodboard string `yaml:"moodboard"`
}

// Names returns the album name prefixes, falling back to the defaults for
// empty entries.
func (c AlbumsConfig) Names() album.Names {
	names := album.DefaultNames()
	for kind, name := range map[album.Kind]string{
		album.KindDuplicate: c.Duplicate,
		album.KindSimilar:   c.Similar,
		album.KindMoodboard: c.Moodboard,
	} {
		if name != "" {
			names[kind] = name
		}
	}
	return names
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envCount is envInt that also accepts zero, used for thresholds and retries.
func envCount(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma separated variable, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load builds the configuration from the embedded defaults, the optional
// YAML file named by CLUSTER_CONFIG and finally the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	if path := os.Getenv("CLUSTER_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Cluster.Engine().Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	c.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", c.Web.AllowedOrigins)
	c.Web.BodyLimit = int64(envInt("WEB_BODY_LIMIT", int(c.Web.BodyLimit)))
	c.Web.RequestTimeout = envDuration("WEB_REQUEST_TIMEOUT", c.Web.RequestTimeout)

	c.Cluster.HashBits = envCount("HASH_BITS", c.Cluster.HashBits)
	c.Cluster.SimilarityThreshold = envCount("SIMILARITY_THRESHOLD", c.Cluster.SimilarityThreshold)
	c.Cluster.ColorThreshold = envFloat("COLOR_THRESHOLD", c.Cluster.ColorThreshold)
	c.Cluster.BucketSize = envInt("COLOR_BUCKET_SIZE", c.Cluster.BucketSize)
	c.Cluster.BucketWithTone = envBool("COLOR_BUCKET_WITH_TONE", c.Cluster.BucketWithTone)
	c.Cluster.Policy = envString("CLUSTER_POLICY", c.Cluster.Policy)
	c.Cluster.ColorStrategy = envString("COLOR_STRATEGY", c.Cluster.ColorStrategy)

	c.Storage.Backend = envString("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Dir = envString("STORAGE_DIR", c.Storage.Dir)
	c.Storage.PublicURL = envString("STORAGE_PUBLIC_URL", c.Storage.PublicURL)
	c.Storage.Driver = envString("STORAGE_SQL_DRIVER", c.Storage.Driver)
	c.Storage.DatabaseURL = envString("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Storage.MaxOpenConns)
	c.Storage.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Storage.MaxIdleConns)

	c.Fetch.Timeout = envDuration("FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.Retries = envCount("FETCH_RETRIES", c.Fetch.Retries)
	c.Fetch.Backoff = envDuration("FETCH_BACKOFF", c.Fetch.Backoff)
	c.Fetch.Concurrency = envInt("FETCH_CONCURRENCY", c.Fetch.Concurrency)
	c.Fetch.MaxBytes = int64(envInt("FETCH_MAX_BYTES", int(c.Fetch.MaxBytes)))

	c.Hash.Algorithm = envString("HASH_ALGORITHM", c.Hash.Algorithm)
	c.Palette.Size = envInt("PALETTE_SIZE", c.Palette.Size)

	c.Labels.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.Labels.GeminiModel = envString("GEMINI_MODEL", c.Labels.GeminiModel)
	c.Labels.OpenAIToken = os.Getenv("OPENAI_TOKEN")
	c.Labels.Language = envString("LABELS_LANGUAGE", c.Labels.Language)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.JSON = envBool("LOG_JSON", c.Log.JSON)
}

// Addr returns the listen address for the web server.
func (c *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
