// Package dispatch routes parsed QR payloads to their type-specific handlers.
// Handlers mutate a send-flow draft through an explicit DraftSink capability
// and report user-facing outcomes through a Notifier; nothing here reaches
// into process-global state.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scan-gateway/internal/logging"
	"github.com/scan-gateway/internal/notify"
	"github.com/scan-gateway/internal/qr"
)

// DraftSink is the narrow capability handlers use to pre-fill the send form.
// Implementations serialize their own writes; last write wins.
type DraftSink interface {
	SetAddress(ctx context.Context, sessionID, address string) error
	SetSearchQuery(ctx context.Context, sessionID, query string) error
	SetAmount(ctx context.Context, sessionID, amount string) error
	OpenForm(ctx context.Context, sessionID string) error
}

// Notifier receives user-facing notifications emitted during dispatch
type Notifier interface {
	Notify(n notify.Notification)
}

// Navigator abstracts the client's navigation stack
type Navigator interface {
	CanGoBack() bool
	Back()
	Replace(path string)
}

// ReadyFunc returns a channel that is closed once the client's screen
// transition has settled. The deferred form open waits on this signal instead
// of a fixed timer; a nil channel means no signal source and the fallback
// delay applies.
type ReadyFunc func() <-chan struct{}

// CancelFunc aborts a pending deferred form open. Calling it after the open
// has executed is a no-op.
type CancelFunc func()

// Result is the uniform outcome every handler returns, regardless of type
type Result struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	NavigateTo string                 `json:"navigateTo,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// SendFormPath is the route the client navigates to for a pre-filled send form
const SendFormPath = "/send"

// DefaultOpenFallbackDelay bounds how long a deferred form open waits for the
// readiness signal before opening anyway.
const DefaultOpenFallbackDelay = 100 * time.Millisecond

// openFormTimeout bounds the detached store write performed by a deferred open
const openFormTimeout = 5 * time.Second

// Config configures a Dispatcher
type Config struct {
	Drafts    DraftSink
	Notifier  Notifier
	Navigator Navigator
	// Ready supplies the transition-settled signal. Optional.
	Ready ReadyFunc
	// OpenFallbackDelay is used when Ready is nil or never fires.
	// Defaults to DefaultOpenFallbackDelay.
	OpenFallbackDelay time.Duration
	Logger            *logging.Logger
}

// Dispatcher selects and runs the handler for a parsed payload
type Dispatcher struct {
	drafts       DraftSink
	notifier     Notifier
	nav          Navigator
	ready        ReadyFunc
	openFallback time.Duration
	logger       *logging.Logger
}

// New creates a dispatcher from the given collaborators
func New(cfg *Config) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("dispatch: configuration is required")
	}
	if cfg.Drafts == nil {
		return nil, fmt.Errorf("dispatch: draft sink is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("dispatch: notifier is required")
	}

	openFallback := cfg.OpenFallbackDelay
	if openFallback <= 0 {
		openFallback = DefaultOpenFallbackDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Dispatcher{
		drafts:       cfg.Drafts,
		notifier:     cfg.Notifier,
		nav:          cfg.Navigator,
		ready:        cfg.Ready,
		openFallback: openFallback,
		logger:       logger,
	}, nil
}

// Handle runs the handler for data.Type. Exactly one handler runs per call.
// Malformed or unsupported payloads never produce an error; they produce a
// Result with Success=false. The returned error surfaces only collaborator
// failures (draft store writes). The CancelFunc aborts a deferred form open
// scheduled by the address and payment-URI handlers; it is always non-nil.
func (d *Dispatcher) Handle(ctx context.Context, sessionID string, data qr.Parsed) (*Result, CancelFunc, error) {
	switch data.Type {
	case qr.TypeEthereumAddress:
		return d.handleAddress(ctx, sessionID, data)
	case qr.TypeEIP681:
		return d.handleEIP681(ctx, sessionID, data)
	case qr.TypeWalletConnectV2:
		return d.handleWalletConnect(data)
	case qr.TypeENSName:
		return d.handleENSName(ctx, sessionID, data)
	case qr.TypeSolidProfile:
		return d.handleSolidProfile(data)
	default:
		return d.handleUnknown(data)
	}
}

// NavigateBack leaves the scanner screen: back when the stack allows it,
// otherwise replace with the application root.
func (d *Dispatcher) NavigateBack() {
	if d.nav == nil {
		return
	}
	if d.nav.CanGoBack() {
		d.nav.Back()
		return
	}
	d.nav.Replace("/")
}

func (d *Dispatcher) handleAddress(ctx context.Context, sessionID string, data qr.Parsed) (*Result, CancelFunc, error) {
	if err := d.drafts.SetAddress(ctx, sessionID, data.Address); err != nil {
		return nil, noopCancel, fmt.Errorf("failed to set draft address: %w", err)
	}
	if err := d.drafts.SetSearchQuery(ctx, sessionID, data.Address); err != nil {
		return nil, noopCancel, fmt.Errorf("failed to set draft search query: %w", err)
	}

	cancel := d.scheduleFormOpen(sessionID)

	return &Result{
		Success:    true,
		Message:    "Address detected",
		NavigateTo: SendFormPath,
		Data:       map[string]interface{}{"address": data.Address},
	}, cancel, nil
}

func (d *Dispatcher) handleEIP681(ctx context.Context, sessionID string, data qr.Parsed) (*Result, CancelFunc, error) {
	if data.Address == "" {
		// The parser's degraded path salvaged no address; nothing actionable.
		return &Result{
			Success: false,
			Message: "Invalid payment URI: no address found",
		}, noopCancel, nil
	}

	if err := d.drafts.SetAddress(ctx, sessionID, data.Address); err != nil {
		return nil, noopCancel, fmt.Errorf("failed to set draft address: %w", err)
	}
	if err := d.drafts.SetSearchQuery(ctx, sessionID, data.Address); err != nil {
		return nil, noopCancel, fmt.Errorf("failed to set draft search query: %w", err)
	}

	// Amount prefill applies to native-asset transfers only: with a function
	// call present the value's decimal precision is unknown here. Unparseable
	// values are skipped silently rather than failing the scan.
	if data.Value != "" && data.FunctionName == "" {
		if amount, ok := weiToEther(data.Value); ok {
			if err := d.drafts.SetAmount(ctx, sessionID, amount); err != nil {
				return nil, noopCancel, fmt.Errorf("failed to set draft amount: %w", err)
			}
		}
	}

	cancel := d.scheduleFormOpen(sessionID)

	resultData := map[string]interface{}{"address": data.Address}
	if data.ChainID != nil {
		resultData["chainId"] = *data.ChainID
	}
	if data.Value != "" {
		resultData["value"] = data.Value
	}

	return &Result{
		Success:    true,
		Message:    "Payment request detected",
		NavigateTo: SendFormPath,
		Data:       resultData,
	}, cancel, nil
}

func (d *Dispatcher) handleWalletConnect(data qr.Parsed) (*Result, CancelFunc, error) {
	d.notifier.Notify(notify.Info("WalletConnect", "WalletConnect support is coming soon"))
	return &Result{
		Success: false,
		Message: "WalletConnect integration coming soon",
		Data:    map[string]interface{}{"topic": data.Topic},
	}, noopCancel, nil
}

func (d *Dispatcher) handleENSName(ctx context.Context, sessionID string, data qr.Parsed) (*Result, CancelFunc, error) {
	// Resolution to an address happens in the send screen's search flow; this
	// handler only seeds the query with the canonical lowercase name.
	if err := d.drafts.SetSearchQuery(ctx, sessionID, data.Name); err != nil {
		return nil, noopCancel, fmt.Errorf("failed to set draft search query: %w", err)
	}

	d.notifier.Notify(notify.Info("ENS name detected", fmt.Sprintf("Looking up %s", data.Name)))

	return &Result{
		Success: true,
		Message: "ENS name detected",
		Data:    map[string]interface{}{"name": data.Name},
	}, noopCancel, nil
}

func (d *Dispatcher) handleSolidProfile(data qr.Parsed) (*Result, CancelFunc, error) {
	d.notifier.Notify(notify.Info("Solid profile", "Profile links are coming soon"))
	return &Result{
		Success: false,
		Message: "Solid profile links coming soon",
		Data:    map[string]interface{}{"profileId": data.ProfileID},
	}, noopCancel, nil
}

func (d *Dispatcher) handleUnknown(data qr.Parsed) (*Result, CancelFunc, error) {
	d.notifier.Notify(notify.Error("Unrecognized QR Code", "This QR code is not supported"))
	d.logger.WithField("rawLength", len(data.Raw)).Debug("Unrecognized QR payload")
	return &Result{
		Success: false,
		Message: "Unrecognized QR code format",
	}, noopCancel, nil
}

// scheduleFormOpen opens the send form once the client's transition has
// settled, or after the fallback delay when no signal source exists. The
// returned cancel aborts the open if the owning screen is torn down first.
func (d *Dispatcher) scheduleFormOpen(sessionID string) CancelFunc {
	cancelled := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(cancelled) })
	}

	var ready <-chan struct{}
	if d.ready != nil {
		ready = d.ready()
	}

	go func() {
		fallback := time.NewTimer(d.openFallback)
		defer fallback.Stop()

		select {
		case <-cancelled:
			return
		case <-ready:
		case <-fallback.C:
		}

		// A cancel racing the readiness signal still wins.
		select {
		case <-cancelled:
			return
		default:
		}

		ctx, cancelTimeout := context.WithTimeout(context.Background(), openFormTimeout)
		defer cancelTimeout()

		if err := d.drafts.OpenForm(ctx, sessionID); err != nil {
			d.logger.WithError(err).WithField("sessionId", sessionID).Error("Failed to open send form")
		}
	}()

	return cancel
}

func noopCancel() {}
