// Package service contains the scan orchestration layer: one scan event in,
// one typed outcome out.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/scan-gateway/internal/dispatch"
	"github.com/scan-gateway/internal/errors"
	"github.com/scan-gateway/internal/logging"
	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/notify"
	"github.com/scan-gateway/internal/qr"
	"github.com/scan-gateway/internal/retry"
)

// ScanInput is one scanned payload from a client scanner screen
type ScanInput struct {
	SessionID string  `json:"sessionId"`
	Payload   string  `json:"payload"`
	Mode      qr.Mode `json:"mode"`
}

// ScanOutcome is everything the client needs to react to a scan: the detected
// type, whether the scanner mode accepted it, the parsed payload, the handler
// result, and any notifications to render.
type ScanOutcome struct {
	Type          qr.Type               `json:"type"`
	Allowed       bool                  `json:"allowed"`
	Parsed        qr.Parsed             `json:"parsed"`
	Result        *dispatch.Result      `json:"result"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// ScanEventRecorder persists scan events; satisfied by
// storage.ScanEventRepository.
type ScanEventRecorder interface {
	Create(ctx context.Context, event *models.ScanEvent) error
}

// ScanService runs the detect -> gate -> parse -> dispatch pipeline and
// records scan events.
type ScanService struct {
	drafts          dispatch.DraftSink
	events          ScanEventRecorder
	nav             dispatch.Navigator
	ready           dispatch.ReadyFunc
	openFallback    time.Duration
	maxPayloadBytes int
	logger          *logging.Logger
}

// ScanServiceConfig configures a ScanService
type ScanServiceConfig struct {
	Drafts dispatch.DraftSink
	// Events may be nil; scan history persistence is then disabled.
	Events            ScanEventRecorder
	Navigator         dispatch.Navigator
	Ready             dispatch.ReadyFunc
	OpenFallbackDelay time.Duration
	MaxPayloadBytes   int
	Logger            *logging.Logger
}

// DefaultMaxPayloadBytes caps scan payload size; QR decoders enforce no bound
const DefaultMaxPayloadBytes = 4096

// NewScanService creates a new scan service
func NewScanService(cfg *ScanServiceConfig) (*ScanService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("scan service configuration is required")
	}
	if cfg.Drafts == nil {
		return nil, fmt.Errorf("draft sink is required")
	}

	maxPayload := cfg.MaxPayloadBytes
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &ScanService{
		drafts:          cfg.Drafts,
		events:          cfg.Events,
		nav:             cfg.Navigator,
		ready:           cfg.Ready,
		openFallback:    cfg.OpenFallbackDelay,
		maxPayloadBytes: maxPayload,
		logger:          logger,
	}, nil
}

// Scan processes one scanned payload for a session. Malformed and unsupported
// payloads are outcomes, not errors; the returned error surfaces only
// validation and collaborator failures.
func (s *ScanService) Scan(ctx context.Context, input *ScanInput) (*ScanOutcome, error) {
	if input == nil {
		return nil, errors.NewInvalidParameterError("input", "required")
	}
	if input.SessionID == "" {
		return nil, errors.NewInvalidParameterError("sessionId", "required")
	}
	if len(input.Payload) > s.maxPayloadBytes {
		return nil, errors.NewInvalidPayloadError(
			fmt.Sprintf("payload exceeds %d bytes", s.maxPayloadBytes))
	}

	mode := input.Mode
	if mode == "" {
		mode = qr.ModeAll
	}
	if !qr.ValidMode(mode) {
		return nil, errors.NewInvalidModeError(string(mode))
	}

	// Classify exactly once; the tag is threaded through parsing and dispatch.
	detected := qr.Detect(input.Payload)

	if !qr.Allowed(detected, mode) {
		// Not an error: the scanner screen treats this as "no recognizable
		// code for this context" and keeps scanning.
		outcome := &ScanOutcome{
			Type:    detected,
			Allowed: false,
			Parsed:  qr.Parsed{Type: detected, Raw: input.Payload},
			Result: &dispatch.Result{
				Success: false,
				Message: fmt.Sprintf("QR code type %s is not accepted in %s mode", detected, mode),
			},
		}
		s.recordEvent(ctx, input, mode, outcome)
		return outcome, nil
	}

	parsed := qr.ParseAs(detected, input.Payload)

	recorder := notify.NewRecorder()
	dispatcher, err := dispatch.New(&dispatch.Config{
		Drafts:            s.drafts,
		Notifier:          notify.NewLogged(recorder, s.logger),
		Navigator:         s.nav,
		Ready:             s.ready,
		OpenFallbackDelay: s.openFallback,
		Logger:            s.logger,
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to build dispatcher", err)
	}

	// The cancel for the deferred form open is dropped: an HTTP caller has no
	// teardown moment between scan and form open, so the open always proceeds.
	result, _, err := dispatcher.Handle(ctx, input.SessionID, parsed)
	if err != nil {
		return nil, errors.NewDraftStoreError("scan dispatch", err)
	}

	outcome := &ScanOutcome{
		Type:          parsed.Type,
		Allowed:       true,
		Parsed:        parsed,
		Result:        result,
		Notifications: recorder.Drain(),
	}
	s.recordEvent(ctx, input, mode, outcome)

	return outcome, nil
}

// Classify runs detection and parsing only, with no side effects
func (s *ScanService) Classify(payload string) *ScanOutcome {
	parsed := qr.Parse(payload)
	return &ScanOutcome{
		Type:    parsed.Type,
		Allowed: true,
		Parsed:  parsed,
	}
}

// recordEvent persists a scan event with retry. Best-effort: failures are
// logged and never affect the scan outcome.
func (s *ScanService) recordEvent(ctx context.Context, input *ScanInput, mode qr.Mode, outcome *ScanOutcome) {
	if s.events == nil {
		return
	}

	event := &models.ScanEvent{
		SessionID: input.SessionID,
		Mode:      mode,
		Type:      outcome.Type,
		Success:   outcome.Result.Success,
		Message:   outcome.Result.Message,
		Payload:   input.Payload,
		ChainID:   outcome.Parsed.ChainID,
	}
	if outcome.Parsed.Address != "" {
		addr := outcome.Parsed.Address
		event.Address = &addr
	}

	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		return s.events.Create(ctx, event)
	})
	if err != nil {
		s.logger.WithError(err).WithField("sessionId", input.SessionID).Warn("Failed to record scan event")
	}
}
