// Package config reads CLI settings from the environment and an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultGeminiModel is used by the local judge when EVALCLIENT_GEMINI_MODEL is unset
const DefaultGeminiModel = "gemini-2.5-flash"

// Load reads .env from the current directory and sets env vars.
// A missing file is not an error; existing env vars are not overwritten.
func Load() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// GeminiAPIKey returns the Google Gemini API key. When set, the Gemini Developer API is used
// instead of Vertex AI.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// GoogleProject returns the Vertex AI project (GOOGLE_PROJECT_ID).
func GoogleProject() string {
	return os.Getenv("GOOGLE_PROJECT_ID")
}

// GoogleRegion returns the Vertex AI location (GOOGLE_REGION).
func GoogleRegion() string {
	return os.Getenv("GOOGLE_REGION")
}

// GeminiModel returns the model the local judge runs on.
func GeminiModel() string {
	if m := os.Getenv("EVALCLIENT_GEMINI_MODEL"); m != "" {
		return m
	}
	return DefaultGeminiModel
}
