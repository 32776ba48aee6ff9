package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/rkany/pigeon/internal/crypto"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr         string
	DatabasePath string
	// MasterSecret signs session tokens.
	MasterSecret string
	// MessageKey is the raw 32-byte message encryption key. The server must
	// not start without it.
	MessageKey []byte
	// UploadDir is where inline image payloads are materialized.
	UploadDir      string
	Debug          bool
	AllowedOrigins []string
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Addr         *string
	DatabasePath *string
	MasterSecret *string
	MessageKey   []byte
	UploadDir    *string
	Debug        *bool
}

// Load loads server configuration from the environment (and an optional .env
// file) and applies any explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	// Best effort; the environment wins over the file.
	_ = godotenv.Load()

	port := 3005
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./pigeon.db"
	}
	if overrides.DatabasePath != nil {
		dbPath = *overrides.DatabasePath
	}

	masterSecret := os.Getenv("PIGEON_MASTER_SECRET")
	if overrides.MasterSecret != nil {
		masterSecret = *overrides.MasterSecret
	}
	if masterSecret == "" {
		return nil, fmt.Errorf("PIGEON_MASTER_SECRET environment variable is required")
	}

	messageKey := overrides.MessageKey
	if messageKey == nil {
		keyHex := os.Getenv("MESSAGE_ENCRYPTION_KEY")
		if keyHex == "" {
			return nil, fmt.Errorf("MESSAGE_ENCRYPTION_KEY environment variable is required")
		}
		decoded, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("MESSAGE_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		messageKey = decoded
	}
	if len(messageKey) != crypto.MessageKeySize {
		return nil, fmt.Errorf("MESSAGE_ENCRYPTION_KEY must be %d bytes, got %d",
			crypto.MessageKeySize, len(messageKey))
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if overrides.UploadDir != nil {
		uploadDir = *overrides.UploadDir
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	return &Config{
		Addr:           addr,
		DatabasePath:   dbPath,
		MasterSecret:   masterSecret,
		MessageKey:     messageKey,
		UploadDir:      uploadDir,
		Debug:          debug,
		AllowedOrigins: []string{"*"}, // For self-hosted, allow all origins
	}, nil
}
