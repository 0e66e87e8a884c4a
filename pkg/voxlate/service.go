package voxlate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/voxlate/voxlate/pkg/logging"
	"github.com/voxlate/voxlate/pkg/session"
	"github.com/voxlate/voxlate/pkg/translator"
	"github.com/voxlate/voxlate/pkg/voice"
)

// Service is the top-level entry point: one configured translation
// front door over any number of concurrent requests. Safe for use from
// multiple goroutines; every request runs on its own session.
type Service struct {
	orch     *translator.Orchestrator
	defaults ProfileDefaults
	logger   *slog.Logger
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defaults, err := cfg.ProfileDefaults()
	if err != nil {
		return nil, err
	}
	base := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(base)

	ctrl := session.NewController(session.Config{
		Endpoint:        cfg.Endpoint,
		Credential:      cfg.Credential,
		Model:           cfg.Model,
		IdleTimeout:     cfg.IdleTimeout(),
		FragmentTimeout: cfg.FragmentTimeout(),
	}, session.WithLogger(base))

	orch := translator.New(ctrl, translator.Config{
		ChunkDuration:  cfg.ChunkDuration(),
		ReorderWindow:  cfg.MaxReorderWindow,
		MaxRetries:     cfg.MaxRetries,
		RetryBackoff:   cfg.RetryBackoff(),
		GrowOnOverflow: cfg.GrowOnOverflow,
	})
	orch.SetLogger(base)

	return &Service{
		orch:     orch,
		defaults: defaults,
		logger:   logging.NewComponentLogger(base, "service"),
	}, nil
}

func (s *Service) applyDefaults(req translator.Request) translator.Request {
	if req.Profile.Voice == "" {
		req.Profile.Voice = voice.ID(s.defaults.Voice)
	}
	if req.Profile.Mode == "" {
		req.Profile.Mode = voice.PreservationMode(s.defaults.Mode)
	}
	return req
}

// Translate runs one single-shot translation and blocks until the
// translated audio is fully assembled.
func (s *Service) Translate(ctx context.Context, req translator.Request) (translator.Result, error) {
	req = s.applyDefaults(req)
	requestID := uuid.New().String()
	log := s.logger.With(slog.String("request_id", requestID))
	log.Info("translation started",
		slog.String("source_lang", req.SourceLang),
		slog.String("target_lang", req.TargetLang),
		slog.String("voice", string(req.Profile.Voice)),
		slog.String("mode", string(req.Profile.Mode)))

	start := time.Now()
	result, err := s.orch.Translate(ctx, req)
	if err != nil {
		log.Error("translation failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}
	log.Info("translation complete",
		slog.Int("chunks", len(result.Chunks)),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// TranslateStream starts a streaming translation and returns
// immediately with a live stream handle.
func (s *Service) TranslateStream(ctx context.Context, req translator.Request) (*translator.Stream, error) {
	req = s.applyDefaults(req)
	requestID := uuid.New().String()
	s.logger.Info("stream started",
		slog.String("request_id", requestID),
		slog.String("target_lang", req.TargetLang))
	return s.orch.TranslateStream(ctx, req)
}
