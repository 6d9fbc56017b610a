package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/dataurl"
	"github.com/ncecere/image_studio/internal/imaging"
	"github.com/ncecere/image_studio/internal/models"
	"github.com/ncecere/image_studio/internal/providers"
)

// EditConfig holds the upstream parameters of the edit pipeline.
type EditConfig struct {
	Model           string
	Size            string
	MinPromptLength int
	Timeout         time.Duration
}

// EditInput carries exactly one image source: a multipart file or a data URL.
type EditInput struct {
	Prompt  string
	File    *imaging.Candidate
	DataURL string
	User    string
}

// EditResult is the shaped response plus the usage charged upstream.
type EditResult struct {
	Envelope ImageEnvelope
	Usage    models.Usage
}

// Editor validates an edit request, normalizes its image and calls the
// upstream edit endpoint.
type Editor struct {
	upstream   providers.ImageEditor
	normalizer *imaging.Normalizer
	cfg        EditConfig
	recorder   Recorder
	logger     *slog.Logger
}

// NewEditor builds an Editor. MinPromptLength defaults to 3.
func NewEditor(upstream providers.ImageEditor, normalizer *imaging.Normalizer, cfg EditConfig, recorder Recorder, logger *slog.Logger) (*Editor, error) {
	if upstream == nil {
		return nil, errors.New("pipeline: image editor required")
	}
	if normalizer == nil {
		return nil, errors.New("pipeline: normalizer required")
	}
	if cfg.MinPromptLength <= 0 {
		cfg.MinPromptLength = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		upstream:   upstream,
		normalizer: normalizer,
		cfg:        cfg,
		recorder:   orNop(recorder),
		logger:     logger,
	}, nil
}

// Edit runs one edit request and shapes the upstream result.
func (e *Editor) Edit(ctx context.Context, in EditInput) (EditResult, error) {
	prompt, err := validatePrompt(in.Prompt, e.cfg.MinPromptLength)
	if err != nil {
		return EditResult{}, err
	}
	if !in.hasImage() {
		return EditResult{}, apierr.New(apierr.KindMissingImage, "an image is required")
	}

	candidate, err := in.candidate()
	if err != nil {
		return EditResult{}, err
	}
	img, err := e.normalizer.Normalize(candidate)
	if err != nil {
		return EditResult{}, err
	}
	if img.Filename == "" {
		img.Filename = "upload-" + uuid.NewString() + imaging.Extension(img.MIMEType)
	}

	callCtx, cancel := withTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.upstream.Edit(callCtx, models.ImageEditRequest{
		Model:  e.cfg.Model,
		Prompt: prompt,
		Image: models.ImageInput{
			Data:        img.Data,
			Filename:    img.Filename,
			ContentType: img.MIMEType,
		},
		Size: e.cfg.Size,
		User: in.User,
	})
	e.recorder.RecordUpstream(OperationEdit, upstreamStatus(err), time.Since(start))
	if err != nil {
		logUpstreamFailure(e.logger, OperationEdit, err)
		return EditResult{}, err
	}
	e.recorder.RecordTokens(OperationEdit, resp.Usage)

	env, err := ShapeImage(resp, "")
	if err != nil {
		logUpstreamFailure(e.logger, OperationEdit, err)
		return EditResult{}, err
	}
	return EditResult{Envelope: env, Usage: resp.Usage}, nil
}

func (in EditInput) hasImage() bool {
	if in.File != nil {
		return len(in.File.Data) > 0
	}
	return in.DataURL != ""
}

// candidate resolves the image source into bytes. Both sources are sniffed,
// so recognizable content overrides the declared type.
func (in EditInput) candidate() (imaging.Candidate, error) {
	if in.File != nil {
		return imaging.Candidate{
			MIMEType: imaging.Sniff(in.File.Data, in.File.MIMEType),
			Data:     in.File.Data,
			Filename: in.File.Filename,
		}, nil
	}
	img, err := dataurl.Decode(in.DataURL)
	if err != nil {
		return imaging.Candidate{}, err
	}
	return imaging.Candidate{MIMEType: imaging.Sniff(img.Data, img.MIMEType), Data: img.Data}, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func logUpstreamFailure(logger *slog.Logger, operation string, err error) {
	logger.Warn("upstream call failed",
		slog.String("operation", operation),
		slog.String("kind", string(apierr.KindOf(err))),
		slog.Int("status", apierr.StatusOf(err)),
	)
}
