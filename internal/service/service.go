package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/verbatim-audio/verbatim/internal/audioinfo"
	"github.com/verbatim-audio/verbatim/internal/bus"
	"github.com/verbatim-audio/verbatim/internal/config"
	"github.com/verbatim-audio/verbatim/internal/jobstore"
	"github.com/verbatim-audio/verbatim/internal/protocol"
	"github.com/verbatim-audio/verbatim/internal/transcriber"
)

// Service answers transcription requests on the bus. Each request runs the
// backend once, records a job row, and publishes exactly one result on the
// per-request subject: either words+language or an error, never both.
type Service struct {
	cfg     config.TranscriberConfig
	log     *slog.Logger
	bus     *bus.Client
	backend transcriber.Backend
	jobs    *jobstore.Store

	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
	sem    chan struct{}
	wg     sync.WaitGroup
	ready  bool

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewService(parent context.Context, cfg config.TranscriberConfig, log *slog.Logger, busClient *bus.Client, backend transcriber.Backend, jobs *jobstore.Store) (*Service, error) {
	meter := otel.Meter("github.com/verbatim-audio/verbatim/internal/service")
	requests, err := meter.Int64Counter("verbatim_transcriptions_total",
		metric.WithDescription("Transcription requests handled, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create requests counter: %w", err)
	}
	duration, err := meter.Float64Histogram("verbatim_transcription_duration_seconds",
		metric.WithDescription("Wall-clock duration of transcription runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	inflight := cfg.MaxInflight
	if inflight <= 0 {
		inflight = 1
	}

	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:      cfg,
		log:      log,
		bus:      busClient,
		backend:  backend,
		jobs:     jobs,
		ctx:      ctx,
		cancel:   cancel,
		sem:      make(chan struct{}, inflight),
		requests: requests,
		duration: duration,
	}, nil
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectTranscribeRequest, s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe transcribe requests: %w", err)
	}
	s.sub = sub
	s.ready = true
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return s.ready
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.TranscriptionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode transcription request", slog.String("error", err.Error()))
		return
	}
	if req.RequestID == "" {
		s.log.Warn("transcription request without request_id dropped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-s.ctx.Done():
			return
		}
		result := s.process(s.ctx, req)
		s.publish(result)
	}()
}

// process runs one request end to end. Every fault is converted into an
// error result; nothing escapes to the caller.
func (s *Service) process(ctx context.Context, req protocol.TranscriptionRequest) protocol.TranscriptionResult {
	start := time.Now()
	result := protocol.TranscriptionResult{RequestID: req.RequestID}

	modelSize := req.ModelSize
	if modelSize == "" {
		modelSize = s.cfg.DefaultModelSize
	}
	treq := transcriber.NewRequest(req.AudioPath, modelSize)

	jobID, err := s.jobs.Begin(ctx, req.RequestID, req.AudioPath, treq.ModelSize)
	if err != nil {
		s.log.Warn("failed to record job", slog.String("error", err.Error()))
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutMS)*time.Millisecond)
	defer cancel()

	transcript, err := s.backend.Transcribe(runCtx, treq)
	elapsed := time.Since(start)
	result.Timestamp = time.Now().UTC()
	result.ElapsedMS = elapsed.Milliseconds()

	if err != nil {
		result.Error = err.Error()
		s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		if ferr := s.jobs.FinishFailed(ctx, jobID, result.Error); ferr != nil {
			s.log.Warn("failed to finish job record", slog.String("error", ferr.Error()))
		}
		s.log.Warn("transcription failed",
			slog.String("request_id", req.RequestID),
			slog.String("error", result.Error))
		return result
	}

	result.Words = transcriber.Flatten(transcript)
	result.Language = transcript.Language

	audioSeconds := transcript.Duration
	if info, err := audioinfo.Probe(req.AudioPath); err == nil {
		audioSeconds = info.Seconds()
	}

	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "done")))
	s.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("model_size", treq.ModelSize)))
	if ferr := s.jobs.FinishDone(ctx, jobID, result.Language, len(result.Words), audioSeconds); ferr != nil {
		s.log.Warn("failed to finish job record", slog.String("error", ferr.Error()))
	}

	s.log.Info("transcription complete",
		slog.String("request_id", req.RequestID),
		slog.String("language", result.Language),
		slog.Int("words", len(result.Words)),
		slog.Duration("elapsed", elapsed))
	return result
}

func (s *Service) publish(result protocol.TranscriptionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.log.Warn("failed to marshal transcription result", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Conn().Publish(protocol.ResultSubject(result.RequestID), data); err != nil {
		s.log.Warn("failed to publish transcription result", slog.String("error", err.Error()))
	}
}
