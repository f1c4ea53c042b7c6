package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.SalesFile != "" || cfg.Data.GeoFile != "" {
		t.Errorf("source files should default to empty, got %q %q", cfg.Data.SalesFile, cfg.Data.GeoFile)
	}
	if cfg.Data.GeoNameProperty != "name" {
		t.Errorf("GeoNameProperty = %q", cfg.Data.GeoNameProperty)
	}
	if !cfg.Security.Compression {
		t.Error("compression should be enabled by default")
	}
	if cfg.Address() != "localhost:8090" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SALES_FILE", "sales.xlsx")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")
	t.Setenv("DATA_LOAD_TIMEOUT", "5s")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.SalesFile != "sales.xlsx" || cfg.Data.UploadMaxBytes != 1024 || cfg.Data.LoadTimeout != 5*time.Second {
		t.Errorf("data config = %+v", cfg.Data)
	}
	if len(cfg.Security.AllowedOrigins) != 2 || cfg.Security.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %q", cfg.Security.AllowedOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero cache", "CACHE_ENTRIES", "0"},
		{"negative upload limit", "UPLOAD_MAX_BYTES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}
