package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("default port=%q, want 8080", cfg.Port)
	}
	if cfg.UploadDir != "./data/uploads" {
		t.Fatalf("default upload dir=%q", cfg.UploadDir)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Fatalf("default max upload=%d", cfg.MaxUploadBytes)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level=%q", cfg.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid config",
			config: Config{
				Port:           "8080",
				UploadDir:      filepath.Join(tmp, "uploads"),
				MaxUploadBytes: 1 << 20,
				LogLevel:       "info",
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:           "abc",
				UploadDir:      tmp,
				MaxUploadBytes: 1,
				LogLevel:       "info",
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range",
			config: Config{
				Port:           "70000",
				UploadDir:      tmp,
				MaxUploadBytes: 1,
				LogLevel:       "info",
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "empty upload dir",
			config: Config{
				Port:           "8080",
				UploadDir:      "",
				MaxUploadBytes: 1,
				LogLevel:       "info",
			},
			wantErr:     true,
			errorString: "upload directory cannot be empty",
		},
		{
			name: "non-positive max upload",
			config: Config{
				Port:           "8080",
				UploadDir:      tmp,
				MaxUploadBytes: 0,
				LogLevel:       "info",
			},
			wantErr:     true,
			errorString: "invalid max upload size 0: must be positive",
		},
		{
			name: "unknown log level",
			config: Config{
				Port:           "8080",
				UploadDir:      tmp,
				MaxUploadBytes: 1,
				LogLevel:       "verbose",
			},
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Fatalf("error %q does not contain %q", err.Error(), tt.errorString)
			}
		})
	}
}
