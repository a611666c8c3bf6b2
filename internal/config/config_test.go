package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate_Empty(t *testing.T) {
	cfg := &Config{}
	warnings := cfg.Validate()
	if len(warnings) != 0 {
		t.Errorf("empty config should have no warnings, got %v", warnings)
	}
}

func TestValidate_MissingVectorHost(t *testing.T) {
	cfg := &Config{
		Vector: VectorConfig{Backend: "qdrant"},
	}
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "host") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected warning about missing vector host")
	}
}

func TestValidate_Radius(t *testing.T) {
	tests := []struct {
		name   string
		radius float32
		want   bool // true = should warn
	}{
		{"zero_means_default", 0, false},
		{"normal", 0.99, false},
		{"max", 1.0, false},
		{"negative", -0.5, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Dedup: DedupConfig{Radius: tt.radius}}
			warnings := cfg.Validate()
			hasWarn := false
			for _, w := range warnings {
				if strings.Contains(w, "radius") {
					hasWarn = true
				}
			}
			if hasWarn != tt.want {
				t.Errorf("radius=%v: hasWarn=%v, want=%v", tt.radius, hasWarn, tt.want)
			}
		})
	}
}

func TestValidate_NegativeWeights(t *testing.T) {
	cfg := &Config{Dedup: DedupConfig{QualityWeight: -1, SizeWeight: -0.5}}
	warnings := cfg.Validate()
	if len(warnings) != 2 {
		t.Errorf("expected warnings for both weights, got %v", warnings)
	}
}

func TestValidate_MemoryBackend(t *testing.T) {
	// "memory" backend needs no host and should not warn
	cfg := &Config{Vector: VectorConfig{Backend: "memory"}}
	warnings := cfg.Validate()
	for _, w := range warnings {
		if strings.Contains(w, "host") {
			t.Error("'memory' backend should not warn about missing host")
		}
	}
}

func TestValidate_SampleRate(t *testing.T) {
	cfg := &Config{Observability: ObservabilityConfig{SampleRate: 1.5}}
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "sample_rate") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about sample_rate")
	}
}

func TestRadiusByMediaType(t *testing.T) {
	cfg := DedupConfig{
		Radius: 0.9999,
		MediaTypes: map[string]DedupOverride{
			"image": {Radius: 0.995},
			"video": {}, // inherits, must not produce an entry
		},
	}

	got := cfg.RadiusByMediaType()
	if len(got) != 1 {
		t.Fatalf("overrides = %v, want only image", got)
	}
	if got["image"] != 0.995 {
		t.Errorf("image radius = %v, want 0.995", got["image"])
	}
}

func TestRadiusByMediaType_Empty(t *testing.T) {
	if got := (DedupConfig{Radius: 0.99}).RadiusByMediaType(); got != nil {
		t.Errorf("overrides = %v, want nil", got)
	}
}

func TestLoad_AppliesMediaTypeOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.yaml")
	yaml := "dedup:\n  radius: 0.9999\n  media_types:\n    image:\n      radius: 0.995\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Dedup.RadiusByMediaType()
	if got["image"] != 0.995 {
		t.Errorf("image radius = %v, want 0.995", got["image"])
	}
}

func TestLoad_ResolvesGraphPasswordFromSecrets(t *testing.T) {
	t.Setenv("DEDUP_GRAPH_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "dedup.yaml")
	yaml := "graph:\n  uri: bolt://localhost:7687\n  username: neo4j\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Password != "s3cret" {
		t.Errorf("password = %q, want the env secret", cfg.Graph.Password)
	}
}

func TestLoad_FileSecretsProvider(t *testing.T) {
	dir := t.TempDir()
	secretsPath := filepath.Join(dir, "secrets.json")
	if err := os.WriteFile(secretsPath, []byte(`{"graph_uri":"bolt://vaulted:7687","graph_password":"pw"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "dedup.yaml")
	yaml := "secrets:\n  provider: file\n  file_path: " + secretsPath + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.URI != "bolt://vaulted:7687" {
		t.Errorf("uri = %q", cfg.Graph.URI)
	}
	if cfg.Graph.Password != "pw" {
		t.Errorf("password = %q", cfg.Graph.Password)
	}
}
