package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/scan-gateway/internal/errors"
	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/qr"
)

const testAddr = "0x1234567890123456789012345678901234567890"

type fakeDraftSink struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeDraftSink) append(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, op)
	return nil
}

func (f *fakeDraftSink) SetAddress(_ context.Context, _, _ string) error {
	return f.append("setAddress")
}

func (f *fakeDraftSink) SetSearchQuery(_ context.Context, _, _ string) error {
	return f.append("setSearchQuery")
}

func (f *fakeDraftSink) SetAmount(_ context.Context, _, _ string) error {
	return f.append("setAmount")
}

func (f *fakeDraftSink) OpenForm(_ context.Context, _ string) error {
	return f.append("openForm")
}

func (f *fakeDraftSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeEventRecorder struct {
	mu     sync.Mutex
	events []*models.ScanEvent
	err    error
}

func (f *fakeEventRecorder) Create(_ context.Context, event *models.ScanEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRecorder) recorded() []*models.ScanEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ScanEvent, len(f.events))
	copy(out, f.events)
	return out
}

func newTestService(t *testing.T, drafts *fakeDraftSink, events ScanEventRecorder) *ScanService {
	t.Helper()
	svc, err := NewScanService(&ScanServiceConfig{
		Drafts:            drafts,
		Events:            events,
		OpenFallbackDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return svc
}

func TestNewScanService_Validation(t *testing.T) {
	_, err := NewScanService(nil)
	assert.Error(t, err)

	_, err = NewScanService(&ScanServiceConfig{})
	assert.Error(t, err)

	svc, err := NewScanService(&ScanServiceConfig{Drafts: &fakeDraftSink{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPayloadBytes, svc.maxPayloadBytes)
}

func TestScan_AddressHappyPath(t *testing.T) {
	drafts := &fakeDraftSink{}
	events := &fakeEventRecorder{}
	svc := newTestService(t, drafts, events)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   testAddr,
		Mode:      qr.ModeSend,
	})
	require.NoError(t, err)

	assert.Equal(t, qr.TypeEthereumAddress, outcome.Type)
	assert.True(t, outcome.Allowed)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, testAddr, outcome.Parsed.Address)
	assert.GreaterOrEqual(t, drafts.writeCount(), 2)

	recorded := events.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "s1", recorded[0].SessionID)
	assert.Equal(t, qr.ModeSend, recorded[0].Mode)
	assert.Equal(t, qr.TypeEthereumAddress, recorded[0].Type)
	assert.True(t, recorded[0].Success)
	require.NotNil(t, recorded[0].Address)
	assert.Equal(t, testAddr, *recorded[0].Address)
}

func TestScan_ModeGating(t *testing.T) {
	wcURI := "wc:7f6e504bfad60b485450578b05db9a4f@2?symKey=ab"

	drafts := &fakeDraftSink{}
	events := &fakeEventRecorder{}
	svc := newTestService(t, drafts, events)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   wcURI,
		Mode:      qr.ModeSend,
	})
	require.NoError(t, err)

	assert.Equal(t, qr.TypeWalletConnectV2, outcome.Type)
	assert.False(t, outcome.Allowed)
	assert.False(t, outcome.Result.Success)
	assert.Contains(t, outcome.Result.Message, "not accepted in send mode")
	assert.Zero(t, drafts.writeCount(), "gated scan must not touch the draft store")

	// The rejection is still recorded for history.
	recorded := events.recorded()
	require.Len(t, recorded, 1)
	assert.False(t, recorded[0].Success)
}

func TestScan_ConnectModeAcceptsWalletConnect(t *testing.T) {
	svc := newTestService(t, &fakeDraftSink{}, nil)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   "wc:abc123@2?relay-protocol=irn&symKey=ff",
		Mode:      qr.ModeConnect,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Allowed)
	assert.Equal(t, "abc123", outcome.Parsed.Topic)
	// The integration itself is still pending, so the handler reports failure.
	assert.False(t, outcome.Result.Success)
	require.Len(t, outcome.Notifications, 1)
}

func TestScan_EmptyModeDefaultsToAll(t *testing.T) {
	svc := newTestService(t, &fakeDraftSink{}, nil)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   "vitalik.eth",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Allowed)
	assert.Equal(t, qr.TypeENSName, outcome.Type)
}

func TestScan_UnknownPayload(t *testing.T) {
	events := &fakeEventRecorder{}
	svc := newTestService(t, &fakeDraftSink{}, events)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   "gibberish",
		Mode:      qr.ModeAll,
	})
	require.NoError(t, err)

	assert.Equal(t, qr.TypeUnknown, outcome.Type)
	assert.False(t, outcome.Allowed)
	assert.False(t, outcome.Result.Success)
	require.Len(t, events.recorded(), 1)
}

func TestScan_InputValidation(t *testing.T) {
	svc := newTestService(t, &fakeDraftSink{}, nil)
	ctx := context.Background()

	_, err := svc.Scan(ctx, nil)
	assert.Error(t, err)

	_, err = svc.Scan(ctx, &ScanInput{Payload: testAddr})
	require.Error(t, err)
	assert.True(t, apperrors.IsUserError(err))

	_, err = svc.Scan(ctx, &ScanInput{SessionID: "s1", Payload: testAddr, Mode: qr.Mode("bogus")})
	require.Error(t, err)
	assert.True(t, apperrors.IsUserError(err))
}

func TestScan_OversizedPayload(t *testing.T) {
	svc := newTestService(t, &fakeDraftSink{}, nil)

	_, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   strings.Repeat("a", DefaultMaxPayloadBytes+1),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsUserError(err))
}

func TestScan_EventRecorderFailureIsNotFatal(t *testing.T) {
	events := &fakeEventRecorder{err: errors.New("db down")}
	svc := newTestService(t, &fakeDraftSink{}, events)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   testAddr,
		Mode:      qr.ModeSend,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Success)
}

func TestScan_NilEventRecorder(t *testing.T) {
	svc := newTestService(t, &fakeDraftSink{}, nil)

	outcome, err := svc.Scan(context.Background(), &ScanInput{
		SessionID: "s1",
		Payload:   testAddr,
		Mode:      qr.ModeSend,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Success)
}

func TestClassify(t *testing.T) {
	drafts := &fakeDraftSink{}
	events := &fakeEventRecorder{}
	svc := newTestService(t, drafts, events)

	outcome := svc.Classify("ethereum:" + testAddr + "?value=1000")

	assert.Equal(t, qr.TypeEIP681, outcome.Type)
	assert.Equal(t, testAddr, outcome.Parsed.Address)
	assert.Equal(t, "1000", outcome.Parsed.Value)
	assert.Nil(t, outcome.Result)

	// Classification never writes drafts or history.
	assert.Zero(t, drafts.writeCount())
	assert.Empty(t, events.recorded())
}
