package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Refresh.IntervalSeconds != 300 {
		t.Errorf("expected default refresh interval 300, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Cache.FilePath != "data/cache.json" {
		t.Errorf("unexpected cache file %q", cfg.Cache.FilePath)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected default model %q", cfg.Gemini.Model)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Endpoint != "/metrics" {
		t.Errorf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.History.Enabled {
		t.Error("history must default to disabled")
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("expected sqlite storage default, got %q", cfg.Storage.Type)
	}
	if cfg.Terminal.Location != "Indore" {
		t.Errorf("unexpected terminal location %q", cfg.Terminal.Location)
	}

	wantCommodities := []string{"wheat", "rice", "maize", "soybean"}
	if len(cfg.Terminal.Commodities) != len(wantCommodities) {
		t.Fatalf("expected %d commodities, got %v", len(wantCommodities), cfg.Terminal.Commodities)
	}
	for i, c := range wantCommodities {
		if cfg.Terminal.Commodities[i] != c {
			t.Errorf("commodity[%d] = %q, want %q", i, cfg.Terminal.Commodities[i], c)
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REFRESH_INTERVAL_SECONDS", "60")
	t.Setenv("WEATHER_API_KEY", "wk")
	t.Setenv("GEMINI_API_KEY", "gk")
	t.Setenv("TERMINAL_COMMODITIES", " wheat , onion ,,potato ")
	t.Setenv("HISTORY_ENABLED", "true")
	t.Setenv("HISTORY_STORAGE_TYPE", "postgresql")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Refresh.IntervalSeconds != 60 {
		t.Errorf("expected interval 60, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Weather.APIKey != "wk" || cfg.Gemini.APIKey != "gk" {
		t.Error("expected API keys from environment")
	}
	if !cfg.History.Enabled || cfg.Storage.Type != "postgresql" {
		t.Errorf("unexpected history config: %+v / %+v", cfg.History, cfg.Storage)
	}

	// CSV parsing trims whitespace and drops empties
	want := []string{"wheat", "onion", "potato"}
	if len(cfg.Terminal.Commodities) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Terminal.Commodities)
	}
	for i := range want {
		if cfg.Terminal.Commodities[i] != want[i] {
			t.Errorf("commodity[%d] = %q, want %q", i, cfg.Terminal.Commodities[i], want[i])
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if got := splitCSV(""); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
	if got := splitCSV("a"); len(got) != 1 || got[0] != "a" {
		t.Errorf("unexpected %v", got)
	}
	if got := splitCSV(" a , b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected %v", got)
	}
}
