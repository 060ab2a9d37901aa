package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration for the retrieval core and its hosts.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where echonote stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the binary
	Version string

	// AI Configuration
	AIEnabled           bool   // ECHONOTE_AI_ENABLED
	AIEmbeddingProvider string // ECHONOTE_AI_EMBEDDING_PROVIDER (default: openai)
	AIOpenAIAPIKey      string // ECHONOTE_AI_OPENAI_API_KEY
	AIOpenAIBaseURL     string // ECHONOTE_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AISiliconFlowAPIKey string // ECHONOTE_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL string // ECHONOTE_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIEmbeddingModel    string // ECHONOTE_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIOpenAIAPIKey != "" || p.AISiliconFlowAPIKey != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("ECHONOTE_AI_ENABLED") == "true"
	p.AIEmbeddingProvider = getEnvOrDefault("ECHONOTE_AI_EMBEDDING_PROVIDER", "openai")
	p.AIOpenAIAPIKey = os.Getenv("ECHONOTE_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvOrDefault("ECHONOTE_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AISiliconFlowAPIKey = os.Getenv("ECHONOTE_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvOrDefault("ECHONOTE_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIEmbeddingModel = getEnvOrDefault("ECHONOTE_AI_EMBEDDING_MODEL", "text-embedding-3-small")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/echonote"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("echonote_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
