// Package service runs analysis requests end to end: input validation,
// credential rotation over the model providers, response validation, offline
// fallback and history persistence.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kalambet/cropdoc/internal/analysis"
	"github.com/kalambet/cropdoc/internal/fallback"
	"github.com/kalambet/cropdoc/internal/history"
	"github.com/kalambet/cropdoc/internal/imagecodec"
	"github.com/kalambet/cropdoc/internal/model"
	"github.com/kalambet/cropdoc/internal/prompts"
	"github.com/kalambet/cropdoc/internal/rotation"
)

const (
	SourceRemote  = "remote"
	SourceOffline = "offline"

	defaultPersistTimeout = 5 * time.Second
	offlineNotice         = "The remote analysis service was unavailable; this is an offline estimate with limited confidence."
)

// Factory creates model handles for credentials.
type Factory interface {
	Create(cred model.Credential) (model.Handle, error)
}

// Recorder persists analysis results.
type Recorder interface {
	Store(ctx context.Context, recordType string, payload any) (history.Record, error)
}

// Outcome is a validated analysis result plus how it was obtained.
type Outcome[T any] struct {
	Result   T      `json:"result"`
	Source   string `json:"source"`
	Attempts int    `json:"attempts"`
	RecordID string `json:"record_id,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

type DiseaseRequest struct {
	Images   []string `json:"images"`
	CropHint string   `json:"crop_hint,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type SoilRequest struct {
	Images   []string `json:"images"`
	Location string   `json:"location,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type YieldRequest struct {
	Crop            string   `json:"crop"`
	AreaHectares    float64  `json:"area_hectares"`
	RainfallMM      float64  `json:"rainfall_mm"`
	TemperatureC    float64  `json:"temperature_c"`
	SoilType        string   `json:"soil_type,omitempty"`
	DiseaseName     string   `json:"disease_name,omitempty"`
	DiseaseSeverity string   `json:"disease_severity,omitempty"`
	PricePerUnit    float64  `json:"price_per_unit,omitempty"`
	Images          []string `json:"images,omitempty"`
}

type GitErrorRequest struct {
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

type Service struct {
	factory        Factory
	strategy       *rotation.Strategy
	recorder       Recorder
	tracker        *Tracker
	persistTimeout time.Duration
}

type Option func(*Service)

func WithTracker(t *Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) { s.persistTimeout = d }
}

func New(factory Factory, strategy *rotation.Strategy, recorder Recorder, opts ...Option) *Service {
	s := &Service{
		factory:        factory,
		strategy:       strategy,
		recorder:       recorder,
		tracker:        NewTracker(),
		persistTimeout: defaultPersistTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) AnalyzeDisease(ctx context.Context, session string, req DiseaseRequest) (Outcome[analysis.DiseaseResult], error) {
	images, err := decodeImages(req.Images, true)
	if err != nil {
		return Outcome[analysis.DiseaseResult]{}, err
	}
	prompt := prompts.Disease(prompts.DiseaseParams{CropHint: req.CropHint, Notes: req.Notes, ImageCount: len(images)})

	return run(ctx, s, session, pipeline[analysis.DiseaseResult]{
		kind:     analysis.KindDisease,
		prompt:   prompt,
		images:   images,
		validate: ValidateDiseaseFor(images[0]),
		defaults: analysis.DefaultDisease(),
		offline:  func() analysis.DiseaseResult { return fallback.Analyze(images[0].Encoded) },
	})
}

func (s *Service) AnalyzeSoil(ctx context.Context, session string, req SoilRequest) (Outcome[analysis.SoilResult], error) {
	images, err := decodeImages(req.Images, true)
	if err != nil {
		return Outcome[analysis.SoilResult]{}, err
	}
	return run(ctx, s, session, pipeline[analysis.SoilResult]{
		kind:     analysis.KindSoil,
		prompt:   prompts.Soil(prompts.SoilParams{Location: req.Location, Notes: req.Notes, ImageCount: len(images)}),
		images:   images,
		validate: analysis.ValidateSoil,
		defaults: analysis.DefaultSoil(),
	})
}

func (s *Service) AnalyzeYield(ctx context.Context, session string, req YieldRequest) (Outcome[analysis.YieldResult], error) {
	if strings.TrimSpace(req.Crop) == "" {
		return Outcome[analysis.YieldResult]{}, fmt.Errorf("%w: crop is required", imagecodec.ErrInvalidInput)
	}
	if req.AreaHectares <= 0 {
		return Outcome[analysis.YieldResult]{}, fmt.Errorf("%w: area must be positive", imagecodec.ErrInvalidInput)
	}
	if req.RainfallMM < 0 {
		return Outcome[analysis.YieldResult]{}, fmt.Errorf("%w: rainfall cannot be negative", imagecodec.ErrInvalidInput)
	}
	images, err := decodeImages(req.Images, false)
	if err != nil {
		return Outcome[analysis.YieldResult]{}, err
	}
	return run(ctx, s, session, pipeline[analysis.YieldResult]{
		kind: analysis.KindYield,
		prompt: prompts.Yield(prompts.YieldParams{
			Crop:            req.Crop,
			AreaHectares:    req.AreaHectares,
			RainfallMM:      req.RainfallMM,
			TemperatureC:    req.TemperatureC,
			SoilType:        req.SoilType,
			DiseaseName:     req.DiseaseName,
			DiseaseSeverity: req.DiseaseSeverity,
			PricePerUnit:    req.PricePerUnit,
		}),
		images:   images,
		validate: analysis.ValidateYield,
		defaults: analysis.DefaultYield(),
	})
}

func (s *Service) AnalyzeGitError(ctx context.Context, session string, req GitErrorRequest) (Outcome[analysis.GitErrorResult], error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return Outcome[analysis.GitErrorResult]{}, fmt.Errorf("%w: error message is required", imagecodec.ErrInvalidInput)
	}
	return run(ctx, s, session, pipeline[analysis.GitErrorResult]{
		kind:     analysis.KindGitError,
		prompt:   prompts.GitError(prompts.GitErrorParams{Message: msg, Command: req.Command}),
		validate: analysis.ValidateGitError,
		defaults: analysis.DefaultGitError(msg),
	})
}

// ValidateDiseaseFor validates a disease response and clips its bounding
// boxes to img.
func ValidateDiseaseFor(img imagecodec.Image) func(map[string]any, analysis.DiseaseResult) analysis.DiseaseResult {
	return func(obj map[string]any, d analysis.DiseaseResult) analysis.DiseaseResult {
		r := analysis.ValidateDisease(obj, d)
		r.BoundingBoxes = analysis.ClampBoxes(r.BoundingBoxes, img.Width, img.Height)
		return r
	}
}

type pipeline[T any] struct {
	kind     analysis.Kind
	prompt   string
	images   []imagecodec.Image
	validate func(map[string]any, T) T
	defaults T
	// offline is nil for kinds without a local analyzer.
	offline func() T
}

func run[T any](ctx context.Context, s *Service, session string, p pipeline[T]) (Outcome[T], error) {
	ctx, tk := s.tracker.Begin(ctx, session)
	defer s.tracker.End(tk)

	started := time.Now()
	res := rotation.Run(ctx, s.strategy, func(ctx context.Context, cred model.Credential) (T, error) {
		h, err := s.factory.Create(cred)
		if err != nil {
			var zero T
			return zero, err
		}
		raw, err := h.Generate(ctx, model.Request{Prompt: p.prompt, Images: p.images})
		if err != nil {
			var zero T
			return zero, err
		}
		return analysis.ExtractAndValidate(raw, p.validate, p.defaults)
	}, p.defaults)

	if !s.tracker.Current(tk) {
		log.Debug().Str("kind", string(p.kind)).Str("session", session).Msg("discarding superseded result")
		return Outcome[T]{}, ErrSuperseded
	}

	out := Outcome[T]{Result: res.Value, Source: SourceRemote, Attempts: res.Attempts}
	if res.Exhausted {
		if err := ctx.Err(); err != nil {
			return Outcome[T]{}, err
		}
		if p.offline == nil {
			reason := classify(res.LastErr)
			log.Warn().
				Str("kind", string(p.kind)).
				Int("attempts", res.Attempts).
				Str("reason", string(reason)).
				Msg("analysis unavailable")
			return Outcome[T]{Attempts: res.Attempts}, &UnavailableError{Reason: reason, Attempts: res.Attempts, cause: res.LastErr}
		}
		out.Result = p.offline()
		out.Source = SourceOffline
		out.Notice = offlineNotice
	}

	out.RecordID = s.persist(ctx, p.kind, out.Result)

	log.Info().
		Str("kind", string(p.kind)).
		Str("source", out.Source).
		Int("attempts", out.Attempts).
		Dur("elapsed", time.Since(started)).
		Msg("analysis complete")
	return out, nil
}

// persist stores result under a context detached from the request.
func (s *Service) persist(ctx context.Context, kind analysis.Kind, result any) string {
	if s.recorder == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	rec, err := s.recorder.Store(ctx, string(kind), result)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to persist analysis")
		return ""
	}
	return rec.ID
}

func decodeImages(encoded []string, required bool) ([]imagecodec.Image, error) {
	if required && len(encoded) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", imagecodec.ErrInvalidInput)
	}
	images := make([]imagecodec.Image, 0, len(encoded))
	for i, e := range encoded {
		img, err := imagecodec.Decode(e)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}
