package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ncecere/image_studio/internal/models"
	"github.com/ncecere/image_studio/internal/providers"
	"github.com/ncecere/image_studio/internal/sheet"
)

// GenerateConfig holds the upstream parameters of the generate pipeline.
type GenerateConfig struct {
	ChatModel       string
	ImageModel      string
	MinPromptLength int
	Timeout         time.Duration
}

// GenerateInput is one generate request as received from a client.
type GenerateInput struct {
	Prompt         string
	Style          string
	NegativePrompt string
	Options        Options
	User           string
}

// GenerateResult carries the sheet, the first image envelope and a reference
// for every returned variant.
type GenerateResult struct {
	Envelope ImageEnvelope
	Sheet    sheet.Result
	Variants []string
	// B64 is the raw base64 of the first image when the upstream returned it inline.
	B64   string
	Usage models.Usage
}

// GenerateUpstream is the subset of providers.Upstream the generator needs.
type GenerateUpstream interface {
	providers.ChatCompletions
	providers.ImageGenerator
}

// Generator turns a prompt into a character sheet and an illustration.
type Generator struct {
	upstream GenerateUpstream
	cfg      GenerateConfig
	recorder Recorder
	logger   *slog.Logger
}

// NewGenerator builds a Generator. MinPromptLength defaults to 10.
func NewGenerator(upstream GenerateUpstream, cfg GenerateConfig, recorder Recorder, logger *slog.Logger) (*Generator, error) {
	if upstream == nil {
		return nil, errors.New("pipeline: upstream required")
	}
	if cfg.MinPromptLength <= 0 {
		cfg.MinPromptLength = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{upstream: upstream, cfg: cfg, recorder: orNop(recorder), logger: logger}, nil
}

// Generate describes the character with the chat model, then renders it.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (GenerateResult, error) {
	prompt, err := validatePrompt(in.Prompt, g.cfg.MinPromptLength)
	if err != nil {
		return GenerateResult{}, err
	}
	opts, err := in.Options.Resolve()
	if err != nil {
		return GenerateResult{}, err
	}

	parsed, chatUsage, err := g.describe(ctx, prompt, opts.Temperature)
	if err != nil {
		return GenerateResult{}, err
	}
	if parsed.Defaulted() {
		g.logger.Info("character sheet reply was not valid JSON, using placeholder")
	}

	callCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.upstream.Generate(callCtx, models.ImageRequest{
		Model:   g.cfg.ImageModel,
		Prompt:  sheet.IllustrationPrompt(parsed.Sheet, in.Style, in.NegativePrompt),
		Size:    opts.Size,
		Quality: opts.Quality,
		N:       opts.N,
		User:    in.User,
	})
	g.recorder.RecordUpstream(OperationGenerate, upstreamStatus(err), time.Since(start))
	if err != nil {
		logUpstreamFailure(g.logger, OperationGenerate, err)
		return GenerateResult{}, err
	}
	g.recorder.RecordTokens(OperationGenerate, resp.Usage)

	env, err := ShapeImage(resp, "")
	if err != nil {
		logUpstreamFailure(g.logger, OperationGenerate, err)
		return GenerateResult{}, err
	}
	return GenerateResult{
		Envelope: env,
		Sheet:    parsed,
		Variants: References(resp, ""),
		B64:      strings.TrimSpace(resp.Data[0].B64JSON),
		Usage:    chatUsage.Add(resp.Usage),
	}, nil
}

func (g *Generator) describe(ctx context.Context, prompt string, temperature float32) (sheet.Result, models.Usage, error) {
	callCtx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.upstream.Chat(callCtx, models.ChatRequest{
		Model: g.cfg.ChatModel,
		Messages: []models.ChatMessage{
			{Role: "system", Content: sheet.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temperature,
	})
	g.recorder.RecordUpstream(OperationChat, upstreamStatus(err), time.Since(start))
	if err != nil {
		logUpstreamFailure(g.logger, OperationChat, err)
		return sheet.Result{}, models.Usage{}, err
	}
	g.recorder.RecordTokens(OperationChat, resp.Usage)
	return sheet.Parse(resp.FirstContent()), resp.Usage, nil
}
