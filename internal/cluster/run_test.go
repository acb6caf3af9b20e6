package cluster

import (
	"errors"
	"reflect"
	"testing"
)

func TestRun_RoutesItemsToEngines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HashBits = 4
	cfg.SimilarityThreshold = 1

	items := []Item{
		{ID: "h1", Hash: "0000"},
		{ID: "both", Hash: "0001", Color: rgb(5, 5, 5)},
		{ID: "c1", Color: rgb(0, 0, 0)},
		{ID: "none"},
		{ID: "bad", Hash: "xyz"},
	}

	res, err := Run(items, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hash == nil || res.Color == nil {
		t.Fatal("expected both engines to run")
	}

	if got, want := similarMembers(res.Hash), [][]string{{"h1", "both"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("hash groups = %v; want %v", got, want)
	}
	if got, want := colorMembers(res.Color), [][]string{{"both", "c1"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("color groups = %v; want %v", got, want)
	}

	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", res.Errors)
	}
	if res.Errors[0].ID != "none" || res.Errors[0].Kind != KindInvalidFingerprint {
		t.Errorf("first error = %+v; want none/InvalidFingerprint", res.Errors[0])
	}
	if res.Errors[1].ID != "bad" || res.Errors[1].Engine != EngineHash {
		t.Errorf("second error = %+v; want bad from hash engine", res.Errors[1])
	}
}

func TestRun_SkipsUnusedEngine(t *testing.T) {
	res, err := Run([]Item{{ID: "1", Color: rgb(1, 2, 3)}}, DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hash != nil {
		t.Error("hash engine should not report when no item has a hash")
	}
	if res.Color == nil || len(res.Color.Groups) != 1 {
		t.Errorf("expected one colour group, got %+v", res.Color)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	res, err := Run(nil, DefaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Hash != nil || res.Color != nil || len(res.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BucketSize = 0
	if _, err := Run(nil, cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
