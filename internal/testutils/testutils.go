// Package testutils records and replays HTTP traffic for integration tests.
package testutils

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/areknoster/hypert"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"

	"github.com/datar-psa/evalclient/client"
	"github.com/datar-psa/evalclient/gemini"
)

// ShouldUpdate returns true if tests should update cached HTTP responses
// Set UPDATE_TESTS=true environment variable to update cached responses
func ShouldUpdate() bool {
	return os.Getenv("UPDATE_TESTS") == "true"
}

// SkipWithoutRecordings skips the test when dir holds no recorded responses and UPDATE_TESTS is not set
func SkipWithoutRecordings(t *testing.T, dir string) {
	t.Helper()
	if ShouldUpdate() {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		t.Skipf("no recorded responses in %s; run with UPDATE_TESTS=true to record", dir)
	}
}

// HypertClientConfig configures hypert client creation
type HypertClientConfig struct {
	TestDataDir string
	SubDir      string // Optional subdirectory for organizing test data
}

func (c HypertClientConfig) dir() string {
	if c.SubDir == "" {
		return c.TestDataDir
	}
	return filepath.Join(c.TestDataDir, c.SubDir)
}

// NewRecordingClient creates a hypert client that records to or replays from config's directory
func NewRecordingClient(t *testing.T, config HypertClientConfig) *http.Client {
	namingScheme, err := hypert.NewContentHashNamingScheme(config.dir())
	if err != nil {
		t.Fatalf("failed to create naming scheme: %v", err)
	}

	return hypert.TestClient(t, ShouldUpdate(),
		hypert.WithNamingScheme(namingScheme),
		hypert.WithRequestValidator(hypert.ComposedRequestValidator(
			hypert.PathValidator(),
			hypert.QueryParamsValidator(),
			hypert.MethodValidator(),
		)),
	)
}

// NewGoogleHypertClient is NewRecordingClient with Google default credentials attached in record mode
func NewGoogleHypertClient(t *testing.T, config HypertClientConfig) *http.Client {
	hypertClient := NewRecordingClient(t, config)
	if !ShouldUpdate() {
		return hypertClient
	}

	ctx := context.Background()
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		t.Fatalf("failed to get default credentials: %v", err)
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, hypertClient), creds.TokenSource)
}

// GeminiTestConfig configures Gemini client creation for tests
type GeminiTestConfig struct {
	Project  string
	Location string
	SubDir   string // Subdirectory for hypert test data
}

// DefaultGeminiTestConfig returns a default configuration for Gemini testing
func DefaultGeminiTestConfig(subDir string) GeminiTestConfig {
	return GeminiTestConfig{
		Project:  os.Getenv("GOOGLE_PROJECT_ID"),
		Location: os.Getenv("GOOGLE_REGION"),
		SubDir:   subDir,
	}
}

// NewGeminiGenerator creates a Vertex AI backed generator that replays recorded responses
func NewGeminiGenerator(t *testing.T, config GeminiTestConfig, modelName string) *gemini.Generator {
	hc := HypertClientConfig{TestDataDir: "testdata", SubDir: config.SubDir}
	SkipWithoutRecordings(t, hc.dir())

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		Backend:    genai.BackendVertexAI,
		Project:    config.Project,
		Location:   config.Location,
		HTTPClient: NewGoogleHypertClient(t, hc),
	})
	if err != nil {
		t.Fatalf("failed to create genai client: %v", err)
	}
	return gemini.NewGenerator(genaiClient, modelName)
}

// NewAtlaClient creates an evaluation API client that replays recorded responses.
// Recording reads the key from ATLA_API_KEY; replay sends a placeholder key.
func NewAtlaClient(t *testing.T, subDir string) *client.Client {
	hc := HypertClientConfig{TestDataDir: "testdata", SubDir: subDir}
	SkipWithoutRecordings(t, hc.dir())

	apiKey := os.Getenv(client.APIKeyEnv)
	if !ShouldUpdate() {
		apiKey = "replay"
	}
	c, err := client.New(
		client.WithAPIKey(apiKey),
		client.WithHTTPClient(NewRecordingClient(t, hc)),
		client.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatalf("failed to create evaluation client: %v", err)
	}
	return c
}
