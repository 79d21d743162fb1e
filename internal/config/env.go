package config

import (
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// PreviewConfig controls thumbnail rendering.
type PreviewConfig struct {
    Width  int
    Height int
    DPI    int
}

// PDFConfig controls how source documents are parsed.
type PDFConfig struct {
    Relaxed bool // pdfcpu relaxed validation
}

// SourceConfig controls fetching of remote (s3/http) sources.
type SourceConfig struct {
    Timeout  time.Duration
    TempDir  string
    StaleAge time.Duration
}

// WindowConfig holds the initial main window size.
type WindowConfig struct {
    Width  int
    Height int
}

// Config is the top-level configuration.
type Config struct {
    Logging     LoggingConfig
    Axiom       AxiomConfig
    Preview     PreviewConfig
    PDF         PDFConfig
    Source      SourceConfig
    Window      WindowConfig
    MetricsAddr string
}

// FromEnv loads configuration from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func FromEnv() Config {
    _ = godotenv.Load()

    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", defaultLogFile()),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "20"), 20),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "5"), 5),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pdfassembler",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.Preview = PreviewConfig{
        Width:  parseInt(getEnv("PREVIEW_WIDTH", "200"), 200),
        Height: parseInt(getEnv("PREVIEW_HEIGHT", "300"), 300),
        DPI:    parseInt(getEnv("PREVIEW_DPI", "72"), 72),
    }
    if cfg.Preview.Width <= 0 { cfg.Preview.Width = 200 }
    if cfg.Preview.Height <= 0 { cfg.Preview.Height = 300 }
    if cfg.Preview.DPI <= 0 { cfg.Preview.DPI = 72 }

    cfg.PDF = PDFConfig{
        Relaxed: strings.ToLower(getEnv("PDF_VALIDATION", "relaxed")) != "strict",
    }

    cfg.Source = SourceConfig{
        Timeout:  parseDuration(getEnv("SOURCE_TIMEOUT", "60s"), 60*time.Second),
        TempDir:  getEnv("SOURCE_TEMP_DIR", os.TempDir()),
        StaleAge: parseDuration(getEnv("SOURCE_STALE_AGE", "24h"), 24*time.Hour),
    }

    cfg.Window = WindowConfig{
        Width:  parseInt(getEnv("WINDOW_WIDTH", "1000"), 1000),
        Height: parseInt(getEnv("WINDOW_HEIGHT", "680"), 680),
    }

    cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}

// defaultLogFile places the log under the user cache dir; a desktop app has no
// stable working directory.
func defaultLogFile() string {
    dir, err := os.UserCacheDir()
    if err != nil { return filepath.Join("logs", "pdfassembler.log") }
    return filepath.Join(dir, "pdfassembler", "pdfassembler.log")
}
