package storage

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/scan-gateway/internal/models"
	"github.com/scan-gateway/internal/qr"
)

// maxStoredPayload caps how much of the raw payload is persisted; QR decoders
// put no length bound on their output.
const maxStoredPayload = 512

// truncatePayload caps the payload at maxStoredPayload bytes without cutting
// through a multi-byte rune. Postgres rejects invalid UTF-8 in TEXT columns.
func truncatePayload(payload string) string {
	if len(payload) <= maxStoredPayload {
		return payload
	}
	cut := maxStoredPayload
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return payload[:cut]
}

// ScanEventRepository handles scan event persistence
type ScanEventRepository struct {
	db *PostgresDB
}

// NewScanEventRepository creates a new scan event repository
func NewScanEventRepository(db *PostgresDB) *ScanEventRepository {
	return &ScanEventRepository{db: db}
}

// Create inserts a scan event. Assigns an ID and timestamp when missing.
func (r *ScanEventRepository) Create(ctx context.Context, event *models.ScanEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.Payload = truncatePayload(event.Payload)

	query := `
		INSERT INTO scan_events (id, session_id, mode, type, success, message, address, chain_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		event.ID,
		event.SessionID,
		event.Mode,
		event.Type,
		event.Success,
		event.Message,
		event.Address,
		event.ChainID,
		event.Payload,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scan event: %w", err)
	}

	return nil
}

// ListBySession returns a session's scan events, newest first
func (r *ScanEventRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*models.ScanEvent, error) {
	query := `
		SELECT id, session_id, mode, type, success, message, address, chain_id, payload, created_at
		FROM scan_events
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.ScanEvent, 0)
	for rows.Next() {
		var event models.ScanEvent
		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.Mode,
			&event.Type,
			&event.Success,
			&event.Message,
			&event.Address,
			&event.ChainID,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan events: %w", err)
	}

	return events, nil
}

// CountByType returns how many events of each QR type have been recorded
func (r *ScanEventRepository) CountByType(ctx context.Context) (map[qr.Type]int64, error) {
	query := `
		SELECT type, COUNT(*)
		FROM scan_events
		GROUP BY type
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count scan events: %w", err)
	}
	defer rows.Close()

	counts := make(map[qr.Type]int64)
	for rows.Next() {
		var t qr.Type
		var count int64
		if err := rows.Scan(&t, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[t] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}

	return counts, nil
}
