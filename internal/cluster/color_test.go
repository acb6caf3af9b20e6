package cluster

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

func rgb(r, g, b uint8) *fingerprint.RGB {
	return &fingerprint.RGB{R: r, G: g, B: b}
}

func colorMembers(res *ColorResult) [][]string {
	return membersOf(res.Groups, func(g ColorGroup) []string { return g.Members })
}

func TestClusterColors_Proximity(t *testing.T) {
	items := []Item{
		{ID: "1", Color: rgb(10, 10, 10)},
		{ID: "2", Color: rgb(20, 20, 20)},
		{ID: "3", Color: rgb(200, 200, 200)},
	}

	res, err := ClusterColors(items, DefaultConfig())
	if err != nil {
		t.Fatalf("ClusterColors failed: %v", err)
	}

	if got, want := colorMembers(res), [][]string{{"1", "2"}, {"3"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v; want %v", got, want)
	}
	if res.Groups[0].Key != "#0a0a0a" {
		t.Errorf("key = %s; want #0a0a0a", res.Groups[0].Key)
	}
	if *res.Groups[0].Representative != *rgb(10, 10, 10) {
		t.Errorf("representative changed to %v", *res.Groups[0].Representative)
	}
	if res.Strategy != StrategyProximity {
		t.Errorf("strategy = %s; want proximity", res.Strategy)
	}
}

func TestClusterColors_ProximityPolicy(t *testing.T) {
	// Third colour is within 50 of both founders but closer to the second.
	items := []Item{
		{ID: "1", Color: rgb(0, 0, 0)},
		{ID: "2", Color: rgb(60, 0, 0)},
		{ID: "3", Color: rgb(45, 0, 0)},
	}

	tests := []struct {
		policy Policy
		want   [][]string
	}{
		{FirstFit, [][]string{{"1", "3"}, {"2"}}},
		{BestFit, [][]string{{"1"}, {"2", "3"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Policy = tt.policy
			res, err := ClusterColors(items, cfg)
			if err != nil {
				t.Fatalf("ClusterColors failed: %v", err)
			}
			if got := colorMembers(res); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("groups = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestClusterColors_PaletteFallback(t *testing.T) {
	items := []Item{
		{ID: "a", Palette: []string{"#101010", "#ffffff"}},
		{ID: "b", Color: rgb(16, 16, 20)},
		{ID: "c", Palette: []string{"#nothex"}},
		{ID: "d"},
	}

	res, err := ClusterColors(items, DefaultConfig())
	if err != nil {
		t.Fatalf("ClusterColors failed: %v", err)
	}
	if got, want := colorMembers(res), [][]string{{"a", "b"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v; want %v", got, want)
	}

	wantKinds := map[string]ErrorKind{
		"c": KindInvalidFormat,
		"d": KindInvalidFingerprint,
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", res.Errors)
	}
	for _, e := range res.Errors {
		if e.Kind != wantKinds[e.ID] {
			t.Errorf("error for %s has kind %s; want %s", e.ID, e.Kind, wantKinds[e.ID])
		}
		if e.Engine != EngineColor {
			t.Errorf("error for %s has engine %q", e.ID, e.Engine)
		}
	}
}

func TestClusterColors_Bucket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColorStrategy = StrategyBucket

	items := []Item{
		{ID: "1", Palette: []string{"#ff6000"}},
		{ID: "2", Palette: []string{"#5f6000"}},
		{ID: "3", Palette: []string{"#f06010"}},
		{ID: "4", Color: rgb(0x5f, 0x61, 0x01)},
	}

	res, err := ClusterColors(items, cfg)
	if err != nil {
		t.Fatalf("ClusterColors failed: %v", err)
	}

	if got, want := colorMembers(res), [][]string{{"1", "3"}, {"2", "4"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("groups = %v; want %v", got, want)
	}
	if res.Groups[0].Key != "2-1-0" || res.Groups[1].Key != "0-1-0" {
		t.Errorf("keys = %s, %s; want 2-1-0, 0-1-0", res.Groups[0].Key, res.Groups[1].Key)
	}
}

func TestClusterColors_BucketWithTone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColorStrategy = StrategyBucket
	cfg.BucketWithTone = true

	items := []Item{
		{ID: "1", Palette: []string{"#ff6000"}, Tone: "vibrant"},
		{ID: "2", Palette: []string{"#ff6000"}, Tone: "Muted"},
		{ID: "3", Palette: []string{"#ff6000"}},
		{ID: "4", Palette: []string{"#ff6000"}, Tone: "VIBRANT"},
	}

	res, err := ClusterColors(items, cfg)
	if err != nil {
		t.Fatalf("ClusterColors failed: %v", err)
	}

	wantKeys := []string{"2-1-0/vibrant", "2-1-0/muted", "2-1-0/neutral"}
	if len(res.Groups) != len(wantKeys) {
		t.Fatalf("expected %d groups, got %d", len(wantKeys), len(res.Groups))
	}
	for i, k := range wantKeys {
		if res.Groups[i].Key != k {
			t.Errorf("group %d key = %s; want %s", i, res.Groups[i].Key, k)
		}
	}
	if got := res.Groups[0].Members; !reflect.DeepEqual(got, []string{"1", "4"}) {
		t.Errorf("vibrant members = %v", got)
	}
}

func TestNewColorStrategy_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColorStrategy = "kmeans"
	if _, err := NewColorStrategy(cfg); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestItem_UnmarshalJSON_Color(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantColor *fingerprint.RGB
		wantErr   bool
	}{
		{"hex string", `{"id":"a","color":"#0a0b0c"}`, rgb(10, 11, 12), false},
		{"channel array", `{"id":"a","color":[10,11,12]}`, rgb(10, 11, 12), false},
		{"channel object", `{"id":"a","color":{"r":10,"g":11,"b":12}}`, rgb(10, 11, 12), false},
		{"null", `{"id":"a","color":null}`, nil, false},
		{"absent", `{"id":"a"}`, nil, false},
		{"bad hex", `{"id":"a","color":"#zzzzzz"}`, nil, true},
		{"channel out of range", `{"id":"a","color":[300,0,0]}`, nil, true},
		{"wrong type", `{"id":"a","color":true}`, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var item Item
			if err := json.Unmarshal([]byte(tc.body), &item); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if item.ID != "a" {
				t.Errorf("id = %q; want a", item.ID)
			}
			if !reflect.DeepEqual(item.Color, tc.wantColor) {
				t.Errorf("color = %v; want %v", item.Color, tc.wantColor)
			}
			if got := item.colorErr != nil; got != tc.wantErr {
				t.Errorf("colorErr = %v; want error %v", item.colorErr, tc.wantErr)
			}
			if tc.wantErr && !item.HasColor() {
				t.Error("item with malformed colour must still reach the colour engine")
			}
		})
	}
}

func TestClusterColors_MalformedColorExcludesOnlyItsItem(t *testing.T) {
	var items []Item
	body := `[{"id":"a","color":[10,10,10]},{"id":"b","color":[20,20,20]},{"id":"c","color":"#zzzzzz"},{"id":"d","color":[300,0,0]}]`
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, strategy := range []ColorStrategyKind{StrategyProximity, StrategyBucket} {
		t.Run(string(strategy), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ColorStrategy = strategy
			res, err := ClusterColors(items, cfg)
			if err != nil {
				t.Fatalf("ClusterColors failed: %v", err)
			}
			if got, want := colorMembers(res), [][]string{{"a", "b"}}; !reflect.DeepEqual(got, want) {
				t.Errorf("groups = %v; want %v", got, want)
			}
			if len(res.Errors) != 2 {
				t.Fatalf("expected 2 errors, got %v", res.Errors)
			}
			for i, id := range []string{"c", "d"} {
				e := res.Errors[i]
				if e.ID != id || e.Kind != KindInvalidFormat || e.Engine != EngineColor {
					t.Errorf("error %d = %+v; want %s InvalidFormat from color engine", i, e, id)
				}
			}
		})
	}
}

func TestColorStrategies_PreferExplicitColor(t *testing.T) {
	items := []Item{
		{ID: "1", Color: rgb(0, 0, 0), Palette: []string{"#ffffff"}},
		{ID: "2", Palette: []string{"#000000"}},
	}

	tests := []struct {
		strategy ColorStrategyKind
		wantKey  string
	}{
		{StrategyProximity, "#000000"},
		{StrategyBucket, "0-0-0"},
	}

	for _, tc := range tests {
		t.Run(string(tc.strategy), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ColorStrategy = tc.strategy
			res, err := ClusterColors(items, cfg)
			if err != nil {
				t.Fatalf("ClusterColors failed: %v", err)
			}
			if got, want := colorMembers(res), [][]string{{"1", "2"}}; !reflect.DeepEqual(got, want) {
				t.Fatalf("groups = %v; want %v", got, want)
			}
			if res.Groups[0].Key != tc.wantKey {
				t.Errorf("key = %s; want %s", res.Groups[0].Key, tc.wantKey)
			}
		})
	}
}
