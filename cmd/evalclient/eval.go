package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/datar-psa/evalclient/api"
	"github.com/datar-psa/evalclient/client"
	"github.com/datar-psa/evalclient/gemini"
	"github.com/datar-psa/evalclient/internal/config"
	"github.com/datar-psa/evalclient/llmjudge"
	"github.com/datar-psa/evalclient/metrics"
)

const (
	backendAtla   = "atla"
	backendGemini = "gemini"
)

type evalFlags struct {
	req         api.EvalRequest
	backend     string
	baseURL     string
	metricsFile string
}

func newEvalCmd(root *rootFlags) *cobra.Command {
	flags := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a response against one or more metrics",
		Example: `  evalclient eval --input "What is the capital of France?" --response Paris \
    --reference Paris --metric recall --metric precision`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(root.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return runEval(cmd, flags, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.req.Input, "input", "", "prompt given to the model under test")
	f.StringVar(&flags.req.Response, "response", "", "response produced by the model under test")
	f.StringArrayVar(&flags.req.Metrics, "metric", nil, "metric to evaluate (repeatable)")
	f.StringVar(&flags.req.Context, "context", "", "retrieved context the response should be grounded in")
	f.StringVar(&flags.req.Reference, "reference", "", "reference answer")
	f.StringVar(&flags.req.Model, "model", "", "evaluator model; service default when empty")
	f.StringVar(&flags.backend, "backend", backendAtla, "evaluator backend: atla or gemini")
	f.StringVar(&flags.baseURL, "base-url", "", "override the hosted service URL")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	return cmd
}

func runEval(cmd *cobra.Command, flags *evalFlags, logger *zap.Logger) error {
	ctx := cmd.Context()
	registry := prometheus.NewRegistry()

	evaluator, err := newEvaluator(ctx, flags, logger, metrics.NewPrometheusMetrics(registry))
	if err != nil {
		return err
	}

	ev, err := evaluator.Evaluate(ctx, flags.req)
	if flags.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(flags.metricsFile, registry); werr != nil {
			logger.Warn("failed to write metrics", zap.String("path", flags.metricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

func newEvaluator(ctx context.Context, flags *evalFlags, logger *zap.Logger, recorder *metrics.PrometheusMetrics) (api.Evaluator, error) {
	switch flags.backend {
	case backendAtla:
		opts := []func(*client.Options){
			client.WithLogger(logger),
			client.WithMetrics(recorder),
		}
		if flags.baseURL != "" {
			opts = append(opts, client.WithBaseURL(flags.baseURL))
		}
		return client.New(opts...)

	case backendGemini:
		cfg := &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  config.GoogleProject(),
			Location: config.GoogleRegion(),
		}
		if key := config.GeminiAPIKey(); key != "" {
			cfg = &genai.ClientConfig{Backend: genai.BackendGeminiAPI, APIKey: key}
		}
		genaiClient, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}

		model := config.GeminiModel()
		if flags.req.Model != "" {
			model = flags.req.Model
		}
		return llmjudge.NewJudge(gemini.NewGenerator(genaiClient, model), llmjudge.JudgeOptions{
			ModelName: model,
			Logger:    logger,
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend %q: want %s or %s", flags.backend, backendAtla, backendGemini)
	}
}
