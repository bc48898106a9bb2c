package evalclient

import (
	"errors"

	"github.com/datar-psa/evalclient/api"
	"github.com/datar-psa/evalclient/client"
)

var (
	// ErrSchemaValidation matches every SchemaValidationError
	ErrSchemaValidation = api.ErrSchemaValidation
	// ErrInvalidRequest is returned when an EvalRequest fails validation
	ErrInvalidRequest = api.ErrInvalidRequest
	// ErrLLMGenerationFailed is returned when LLM generation fails
	ErrLLMGenerationFailed = api.ErrLLMGenerationFailed
	// ErrUnknownMetric is returned when a local judge has no definition for a metric
	ErrUnknownMetric = api.ErrUnknownMetric
	// ErrEmptyAPIKey is returned when no API key is configured for the hosted service
	ErrEmptyAPIKey = client.ErrEmptyAPIKey
	// ErrNoEvaluator is returned when a Judge has nothing to evaluate with
	ErrNoEvaluator = errors.New("no evaluator configured")
)

type SchemaValidationError = api.SchemaValidationError
type APIError = client.APIError
