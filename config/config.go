package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"querypilot/errs"
)

// LookupFunc resolves one configuration key. os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

type Config struct {
	Port         string
	BadgerPath   string
	AssistantTTL time.Duration
	StageTimeout time.Duration
	Qdrant       QdrantConfig
	VertexAI     VertexAIConfig
	Database     DatabaseConfig
	Pipeline     PipelineConfig
	Results      ResultsConfig
	LogJSON      bool
	LogLevel     slog.Level
}

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type VertexAIConfig struct {
	ProjectID       string
	Location        string
	ModelName       string
	TunedModelID    string
	EmbeddingModel  string
	EmbeddingDim    int
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
	MinInterval     time.Duration
	Timeout         time.Duration
}

// DatabaseConfig describes the target database. Driver is one of
// cloudsql, postgres, sqlserver or sqlite.
type DatabaseConfig struct {
	Driver                 string
	InstanceConnectionName string
	Host                   string
	Port                   string
	User                   string
	Password               string
	Name                   string
	Path                   string
	Encrypt                bool
	IAMAuth                bool
	PrivateIP              bool
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetime        time.Duration
}

type PipelineConfig struct {
	RetrievalK        int
	FollowupLimit     int
	AllowLLMToSeeData bool
}

// ResultsConfig selects where saved query results go. When S3Endpoint is
// empty results are written under Dir.
type ResultsConfig struct {
	Dir         string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Prefix    string
}

const (
	DriverCloudSQL  = "cloudsql"
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// GetConfig loads configuration from the process environment.
func GetConfig() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from lookup. Every missing required key is reported
// in one configuration error.
func Load(lookup LookupFunc) (Config, error) {
	env := reader{lookup: lookup}

	cfg := Config{
		Port:         env.str("PORT", "9090"),
		BadgerPath:   env.str("BADGER_PATH", "./data/badger"),
		AssistantTTL: env.duration("ASSISTANT_TTL", time.Hour),
		StageTimeout: env.duration("STAGE_TIMEOUT", 2*time.Minute),
		Qdrant: QdrantConfig{
			Host:   env.str("QDRANT_HOST", ""),
			Port:   env.integer("QDRANT_PORT", 6334),
			APIKey: env.str("QDRANT_API_KEY", ""),
			UseTLS: env.boolean("QDRANT_USE_TLS", true),
		},
		VertexAI: VertexAIConfig{
			ProjectID:       env.str("GCP_PROJECT_ID", ""),
			Location:        env.str("GCP_LOCATION", ""),
			ModelName:       env.str("GCP_MODEL_NAME", ""),
			TunedModelID:    env.str("GCP_TUNED_MODEL_ID", ""),
			EmbeddingModel:  env.str("EMBEDDING_MODEL", "textembedding-gecko@003"),
			EmbeddingDim:    env.integer("EMBEDDING_DIM", 768),
			MaxOutputTokens: env.integer("GEN_MAX_OUTPUT_TOKENS", 1024),
			Temperature:     env.float("GEN_TEMPERATURE", 0.9),
			TopP:            env.float("GEN_TOP_P", 1),
			MinInterval:     env.duration("GEN_MIN_INTERVAL", 500*time.Millisecond),
			Timeout:         env.duration("GEN_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Driver:                 strings.ToLower(env.str("DB_DRIVER", DriverCloudSQL)),
			InstanceConnectionName: env.str("INSTANCE_CONNECTION_NAME", ""),
			Host:                   env.str("DB_HOST", ""),
			Port:                   env.str("DB_PORT", ""),
			User:                   env.str("DB_USER", ""),
			Password:               env.str("DB_PASS", ""),
			Name:                   env.str("DB_NAME", ""),
			Path:                   env.str("DB_PATH", ""),
			Encrypt:                env.boolean("DB_ENCRYPT", true),
			IAMAuth:                env.boolean("DB_IAM_AUTH", false),
			PrivateIP:              env.boolean("DB_PRIVATE_IP", false),
			MaxOpenConns:           env.integer("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:           env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:        env.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Pipeline: PipelineConfig{
			RetrievalK:        env.integer("RETRIEVAL_K", 10),
			FollowupLimit:     env.integer("FOLLOWUP_LIMIT", 5),
			AllowLLMToSeeData: env.boolean("ALLOW_LLM_TO_SEE_DATA", true),
		},
		Results: ResultsConfig{
			Dir:         env.str("RESULTS_DIR", "./results"),
			S3Endpoint:  env.str("RESULTS_S3_ENDPOINT", ""),
			S3Region:    env.str("RESULTS_S3_REGION", ""),
			S3Bucket:    env.str("RESULTS_S3_BUCKET", ""),
			S3AccessKey: env.str("RESULTS_S3_ACCESS_KEY", ""),
			S3SecretKey: env.str("RESULTS_S3_SECRET_KEY", ""),
			S3UseSSL:    env.boolean("RESULTS_S3_USE_SSL", true),
			S3Prefix:    env.str("RESULTS_S3_PREFIX", ""),
		},
		LogJSON:  env.boolean("LOG_JSON", true),
		LogLevel: env.level("LOG_LEVEL", slog.LevelInfo),
	}

	if len(env.invalid) > 0 {
		return Config{}, errs.Configuration("invalid configuration values: "+strings.Join(env.invalid, ", "), nil)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every required option is present.
func (c Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("QDRANT_HOST", c.Qdrant.Host)
	require("QDRANT_API_KEY", c.Qdrant.APIKey)
	require("GCP_PROJECT_ID", c.VertexAI.ProjectID)
	require("GCP_LOCATION", c.VertexAI.Location)
	require("GCP_MODEL_NAME", c.VertexAI.ModelName)
	require("GCP_TUNED_MODEL_ID", c.VertexAI.TunedModelID)

	switch c.Database.Driver {
	case DriverCloudSQL:
		require("INSTANCE_CONNECTION_NAME", c.Database.InstanceConnectionName)
		require("DB_USER", c.Database.User)
		if !c.Database.IAMAuth {
			require("DB_PASS", c.Database.Password)
		}
		require("DB_NAME", c.Database.Name)
	case DriverPostgres, DriverSQLServer:
		require("DB_HOST", c.Database.Host)
		require("DB_USER", c.Database.User)
		require("DB_NAME", c.Database.Name)
	case DriverSQLite:
		require("DB_PATH", c.Database.Path)
	default:
		return errs.Configuration(fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), nil)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return errs.Configuration("missing required configuration: "+strings.Join(missing, ", "), nil)
	}
	if c.AssistantTTL <= 0 {
		return errs.Configuration("ASSISTANT_TTL must be > 0", nil)
	}
	if c.Pipeline.RetrievalK <= 0 {
		return errs.Configuration("RETRIEVAL_K must be > 0", nil)
	}
	return nil
}

// UsesS3Results reports whether saved results go to an S3-compatible bucket.
func (c Config) UsesS3Results() bool {
	return strings.TrimSpace(c.Results.S3Endpoint) != ""
}

type reader struct {
	lookup  LookupFunc
	invalid []string
}

func (r *reader) str(key, defaultValue string) string {
	if value, ok := r.lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func (r *reader) integer(key string, defaultValue int) int {
	value, ok := r.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.invalid = append(r.invalid, key)
		return defaultValue
	}
	return n
}

func (r *reader) float(key string, defaultValue float64) float64 {
	value, ok := r.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return defaultValue
	}
	return f
}

func (r *reader) boolean(key string, defaultValue bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		r.invalid = append(r.invalid, key)
		return defaultValue
	}
}

func (r *reader) duration(key string, defaultValue time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		r.invalid = append(r.invalid, key)
		return defaultValue
	}
	return d
}

func (r *reader) level(key string, defaultValue slog.Level) slog.Level {
	value, ok := r.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		r.invalid = append(r.invalid, key)
		return defaultValue
	}
	return level
}
