package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"goodCredAPI/internal/event"
)

// JournalService persists the protocol event journal in Postgres. The
// in-memory ledgers stay authoritative at runtime; the journal exists so
// a restart can replay every committed operation in its original order.
type JournalService struct {
	db *pgxpool.Pool
}

func NewJournalService(db *pgxpool.Pool) *JournalService {
	return &JournalService{db: db}
}

func (s *JournalService) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS protocol_events (
			seq        BIGSERIAL PRIMARY KEY,
			id         UUID NOT NULL UNIQUE,
			type       TEXT NOT NULL,
			actor      TEXT NOT NULL,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create protocol_events table: %w", err)
	}
	return nil
}

// Append journals one committed event. The ledger mutation already
// happened, so a journal failure is logged rather than propagated; the
// operation itself must not be rolled back at this point.
func (s *JournalService) Append(ctx context.Context, e event.Event) {
	query := `
		INSERT INTO protocol_events (id, type, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, e.ID, string(e.Type), e.Actor, e.Payload, e.CreatedAt); err != nil {
		log.Printf("Journal: failed to append %s event %s: %v", e.Type, e.ID, err)
	}
}

// LoadAll returns the full journal in sequence order for startup replay.
func (s *JournalService) LoadAll(ctx context.Context) ([]event.Event, error) {
	query := `
		SELECT seq, id, type, actor, payload, created_at
		FROM protocol_events
		ORDER BY seq ASC
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var typ string
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.Actor, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Type = event.Type(typ)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Recent returns the newest events for the admin feed.
func (s *JournalService) Recent(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT seq, id, type, actor, payload, created_at
		FROM protocol_events
		ORDER BY seq DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		var typ string
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &e.Actor, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Type = event.Type(typ)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Replayer is implemented by every ledger service that can rebuild state
// from journaled events.
type Replayer interface {
	Restore(e event.Event) error
}

// Replay feeds the whole journal through the ledgers in sequence order.
// Call before the server starts accepting requests.
func (s *JournalService) Replay(ctx context.Context, ledgers ...Replayer) (int, error) {
	events, err := s.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range events {
		for _, l := range ledgers {
			if err := l.Restore(e); err != nil {
				return 0, fmt.Errorf("replay seq %d (%s): %w", e.Seq, e.Type, err)
			}
		}
	}
	return len(events), nil
}
