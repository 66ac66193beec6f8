// Package notify defines the user-facing notification surface. Scan handlers
// emit notifications; the API layer drains them into the response so the
// client can render toasts.
package notify

import (
	"sync"

	"github.com/scan-gateway/internal/logging"
)

// Type represents the visual severity of a notification
type Type string

const (
	// TypeInfo is an informational notification
	TypeInfo Type = "info"
	// TypeSuccess is a success notification
	TypeSuccess Type = "success"
	// TypeError is an error notification
	TypeError Type = "error"
)

// Notification is a single toast-style message for the client to display
type Notification struct {
	Type             Type   `json:"type"`
	Text1            string `json:"text1"`
	Text2            string `json:"text2,omitempty"`
	Position         string `json:"position,omitempty"`
	VisibilityTimeMs int    `json:"visibilityTimeMs,omitempty"`
}

// Info builds an informational notification
func Info(text1, text2 string) Notification {
	return Notification{Type: TypeInfo, Text1: text1, Text2: text2}
}

// Success builds a success notification
func Success(text1, text2 string) Notification {
	return Notification{Type: TypeSuccess, Text1: text1, Text2: text2}
}

// Error builds an error notification
func Error(text1, text2 string) Notification {
	return Notification{Type: TypeError, Text1: text1, Text2: text2}
}

// Recorder collects notifications emitted while handling a single scan.
// Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewRecorder creates an empty notification recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends a notification to the recorder
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Drain returns the collected notifications and resets the recorder
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notifications
	r.notifications = nil
	return out
}

// Len returns the number of collected notifications
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notifications)
}

// Logged wraps a recorder so every notification is also written to the
// structured log.
type Logged struct {
	next   *Recorder
	logger *logging.Logger
}

// NewLogged creates a logging wrapper around a recorder
func NewLogged(next *Recorder, logger *logging.Logger) *Logged {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Logged{next: next, logger: logger}
}

// Notify logs the notification and forwards it to the wrapped recorder
func (l *Logged) Notify(n Notification) {
	l.logger.WithFields(map[string]interface{}{
		"type":  string(n.Type),
		"text1": n.Text1,
	}).Debug("Notification emitted")
	l.next.Notify(n)
}
