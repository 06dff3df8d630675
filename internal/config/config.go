package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64

	// Model capabilities
	GeminiAPIKey        string
	ChatModel           string
	MarkupModel         string
	ModelTier           string
	ChatMaxTokens       int
	MarkupMaxTokens     int
	ModelTimeout        time.Duration
	DetectionServiceURL string
	DetectionModel      string
	StructureModel      string
	OCRServiceURL       string
	OCRTimeout          int

	// Table extraction
	DetectionThreshold float64
	StructureThreshold float64
	CropMargin         int
	RenderDPI          float64
	MaxPDFPages        int

	// Artifact layout. Everything lives under PublicDir so the files can be
	// served statically next to the API.
	PublicDir     string
	UploadsDir    string
	PreprocessDir string
	ResultsDir    string
	IndexPath     string
	MergedPath    string

	// Chat sessions
	SessionStore    string // "memory" (default) or "redis"
	MaxHistoryTurns int
	SessionTTL      time.Duration

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Background processing
	QueueEnabled     bool
	QueueConcurrency int

	// Transcripts (optional, skipped when MongoURI is empty)
	MongoURI string
	DBName   string

	CleanupCron string

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
	ServiceName    string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	publicDir := getEnv("PUBLIC_DIR", "./public")

	cfg := &Config{
		Port:        getEnv("PORT", "4000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		ChatModel:           getEnv("CHAT_MODEL", "gemini-2.0-flash"),
		MarkupModel:         getEnv("MARKUP_MODEL", "gemini-2.0-flash"),
		ModelTier:           getEnv("MODEL_TIER", "free"),
		ChatMaxTokens:       getEnvInt("CHAT_MAX_TOKENS", 1024),
		MarkupMaxTokens:     getEnvInt("MARKUP_MAX_TOKENS", 1024),
		ModelTimeout:        time.Duration(getEnvInt("MODEL_TIMEOUT", 120)) * time.Second,
		DetectionServiceURL: getEnv("DETECTION_SERVICE_URL", "http://localhost:8002"),
		DetectionModel:      getEnv("DETECTION_MODEL", "microsoft/table-transformer-detection"),
		StructureModel:      getEnv("STRUCTURE_MODEL", "microsoft/table-transformer-structure-recognition"),
		OCRServiceURL:       getEnv("OCR_SERVICE_URL", "http://localhost:8001"),
		OCRTimeout:          getEnvInt("OCR_TIMEOUT", 300),

		DetectionThreshold: getEnvFloat64("DETECTION_THRESHOLD", 0.98),
		StructureThreshold: getEnvFloat64("STRUCTURE_THRESHOLD", 0.6),
		CropMargin:         getEnvInt("CROP_MARGIN", 10),
		RenderDPI:          getEnvFloat64("RENDER_DPI", 200),
		MaxPDFPages:        getEnvInt("MAX_PDF_PAGES", 200),

		PublicDir:     publicDir,
		UploadsDir:    getEnv("UPLOADS_DIR", filepath.Join(publicDir, "uploads")),
		PreprocessDir: getEnv("PREPROCESS_DIR", filepath.Join(publicDir, "preprocess_results")),
		ResultsDir:    getEnv("RESULTS_DIR", filepath.Join(publicDir, "results")),
		IndexPath:     getEnv("INDEX_PATH", filepath.Join(publicDir, "results.json")),
		MergedPath:    getEnv("MERGED_PATH", filepath.Join(publicDir, "results.html")),

		SessionStore:    getEnv("SESSION_STORE", "memory"),
		MaxHistoryTurns: getEnvInt("MAX_HISTORY_TURNS", 20),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		QueueEnabled:     getEnvBool("QUEUE_ENABLED", false),
		QueueConcurrency: getEnvInt("QUEUE_CONCURRENCY", 1),

		MongoURI: getEnv("MONGO_URI", ""),
		DBName:   getEnv("DB_NAME", "vlmax"),

		CleanupCron: getEnv("CLEANUP_CRON", ""),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:    getEnv("SERVICE_NAME", "vlmax-platform"),
	}

	if cfg.MaxHistoryTurns < 2 {
		return nil, fmt.Errorf("MAX_HISTORY_TURNS must be at least 2, got %d", cfg.MaxHistoryTurns)
	}
	if cfg.DetectionThreshold <= 0 || cfg.DetectionThreshold > 1 {
		return nil, fmt.Errorf("DETECTION_THRESHOLD must be in (0, 1], got %v", cfg.DetectionThreshold)
	}
	if cfg.SessionStore != "memory" && cfg.SessionStore != "redis" {
		return nil, fmt.Errorf("SESSION_STORE must be memory or redis, got %q", cfg.SessionStore)
	}

	return cfg, nil
}

// RequireModels validates the settings needed by binaries that call the
// chat or markup capabilities.
func (c *Config) RequireModels() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}
	if c.DetectionServiceURL == "" {
		return fmt.Errorf("DETECTION_SERVICE_URL is required - set it in .env file")
	}
	return nil
}

// PublicPath maps a file inside PublicDir to the URL path it is served
// under, e.g. ./public/results/ab12cd34.csv -> /results/ab12cd34.csv.
func (c *Config) PublicPath(file string) string {
	rel, err := filepath.Rel(c.PublicDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return "/" + filepath.ToSlash(rel)
}
