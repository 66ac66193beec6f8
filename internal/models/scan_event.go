package models

import (
	"time"

	"github.com/scan-gateway/internal/qr"
)

// ScanEvent records one processed QR scan for a session. Persistence is
// best-effort; the scan result never depends on it.
type ScanEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Mode      qr.Mode   `json:"mode"`
	Type      qr.Type   `json:"type"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Address   *string   `json:"address,omitempty"`
	ChainID   *int64    `json:"chainId,omitempty"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}
