package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/DeanIA/deduplication-faiss/internal/secrets"
)

// Config holds all application configuration.
type Config struct {
	Input         InputConfig         `mapstructure:"input"`
	Output        OutputConfig        `mapstructure:"output"`
	Dedup         DedupConfig         `mapstructure:"dedup"`
	Vector        VectorConfig        `mapstructure:"vector"`
	Graph         GraphConfig         `mapstructure:"graph"`
	Temporal      TemporalConfig      `mapstructure:"temporal"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Log           LogConfig           `mapstructure:"log"`
}

// InputConfig locates the catalog and embedding inputs.
type InputConfig struct {
	Descriptions string `mapstructure:"descriptions"`
	Embeddings   string `mapstructure:"embeddings"`
}

// OutputConfig locates the run outputs.
type OutputConfig struct {
	Groups string `mapstructure:"groups"`
	Pairs  string `mapstructure:"pairs"`
}

// DedupConfig controls grouping and canonical selection.
type DedupConfig struct {
	Radius           float32 `mapstructure:"radius"`
	QualityWeight    float64 `mapstructure:"quality_weight"`
	SizeWeight       float64 `mapstructure:"size_weight"`
	RetainSingletons bool    `mapstructure:"retain_singletons"`
	TieBreak         string  `mapstructure:"tie_break"`
	Workers          int     `mapstructure:"workers"`

	// Per-media-type radius overrides. Keys are media types ("video",
	// "image"); a zero radius means "inherit the top-level radius".
	// Ranking weights stay global: a duplicate group has one canonical
	// regardless of what media types its members carry.
	MediaTypes map[string]DedupOverride `mapstructure:"media_types"`
}

// DedupOverride allows per-media-type grouping configuration.
type DedupOverride struct {
	Radius float32 `mapstructure:"radius"`
}

// RadiusByMediaType returns the effective per-media-type radius overrides,
// dropping entries that inherit the top-level radius.
func (c DedupConfig) RadiusByMediaType() map[string]float32 {
	var out map[string]float32
	for mt, o := range c.MediaTypes {
		if o.Radius == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]float32, len(c.MediaTypes))
		}
		out[mt] = o.Radius
	}
	return out
}

// VectorConfig configures the similarity index backend.
type VectorConfig struct {
	Backend     string `mapstructure:"backend"` // "qdrant" or "memory"
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Collection  string `mapstructure:"collection"`
	SearchLimit uint64 `mapstructure:"search_limit"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// SecretsConfig selects the backend used to fill credentials the YAML
// leaves empty. The vault token itself comes from DEDUP_VAULT_TOKEN.
type SecretsConfig struct {
	Provider   string `mapstructure:"provider"` // "env" (default), "vault", "file"
	VaultAddr  string `mapstructure:"vault_addr"`
	VaultMount string `mapstructure:"vault_mount"`
	VaultPath  string `mapstructure:"vault_path"`
	FilePath   string `mapstructure:"file_path"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	AuditLog     string  `mapstructure:"audit_log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	// Radius 0 means "use the default"; anything else must be in (0, 1].
	if c.Dedup.Radius != 0 && (c.Dedup.Radius < 0 || c.Dedup.Radius > 1) {
		warnings = append(warnings, fmt.Sprintf("dedup radius %v is outside (0.0, 1.0]", c.Dedup.Radius))
	}
	for mt, o := range c.Dedup.MediaTypes {
		if o.Radius != 0 && (o.Radius < 0 || o.Radius > 1) {
			warnings = append(warnings, fmt.Sprintf("dedup radius %v for media type '%s' is outside (0.0, 1.0]", o.Radius, mt))
		}
	}

	if c.Dedup.QualityWeight < 0 {
		warnings = append(warnings, fmt.Sprintf("dedup quality_weight %v is negative", c.Dedup.QualityWeight))
	}
	if c.Dedup.SizeWeight < 0 {
		warnings = append(warnings, fmt.Sprintf("dedup size_weight %v is negative", c.Dedup.SizeWeight))
	}
	if c.Dedup.Workers < 0 {
		warnings = append(warnings, fmt.Sprintf("dedup workers %d is negative", c.Dedup.Workers))
	}

	// Check for a qdrant backend with no endpoint (skip "memory" backend)
	if c.Vector.Backend != "" && c.Vector.Backend != "memory" && c.Vector.Host == "" {
		warnings = append(warnings, fmt.Sprintf("vector backend '%s' is configured but host is empty", c.Vector.Backend))
	}

	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("observability sample_rate %.2f is outside [0.0, 1.0]", c.Observability.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DEDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	if err := cfg.resolveSecrets(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secrets: %v\n", err)
	}

	return &cfg, nil
}

// resolveSecrets fills credentials the file leaves empty from the
// configured secrets backend. Missing secrets are not an error here: the
// affected feature (graph export) reports its own failure when used.
func (c *Config) resolveSecrets(ctx context.Context) error {
	chain, err := secrets.NewChain(secrets.Config{
		Provider: c.Secrets.Provider,
		Vault: &secrets.VaultConfig{
			Address:    c.Secrets.VaultAddr,
			Token:      os.Getenv("DEDUP_VAULT_TOKEN"),
			MountPath:  c.Secrets.VaultMount,
			SecretPath: c.Secrets.VaultPath,
		},
		File: &secrets.FileConfig{Path: c.Secrets.FilePath},
	})
	if err != nil {
		return err
	}

	if c.Graph.URI == "" {
		if uri, ok := chain.Lookup(ctx, secrets.KeyGraphURI); ok {
			c.Graph.URI = uri
		}
	}
	if c.Graph.URI != "" && c.Graph.Password == "" {
		if pw, ok := chain.Lookup(ctx, secrets.KeyGraphPassword); ok {
			c.Graph.Password = pw
		}
	}
	return nil
}
