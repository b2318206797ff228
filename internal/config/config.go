package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabaseFile string
	LogLevel     string

	// Upload handling
	UploadDir   string
	MaxFileSize int64

	// S3 archive for original statements and extracted pages
	S3Enabled         bool
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// External OCR tooling
	PDFToPPMBin  string
	TesseractBin string
}

func Load() (*Config, error) {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseFile:      getEnv("DATABASE_FILE", "data/fintrack.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		UploadDir:         getEnv("UPLOAD_DIR", "data/uploads/statements"),
		MaxFileSize:       getEnvInt64("MAX_FILE_SIZE", 20*1024*1024),
		S3Enabled:         getEnv("S3_ENABLED", "false") == "true",
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "statements"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		PDFToPPMBin:       getEnv("PDFTOPPM_BIN", "pdftoppm"),
		TesseractBin:      getEnv("TESSERACT_BIN", "tesseract"),
	}

	return cfg, nil
}

// SinglePageDir is where extracted single-page PDFs are materialized for
// review.
func (c *Config) SinglePageDir() string {
	return c.UploadDir + "/single_pages"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
