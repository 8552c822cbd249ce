package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/modgate/internal/event"
	"github.com/flemzord/modgate/internal/gate"
	"github.com/flemzord/modgate/internal/panel"
)

// Entry is one recorded notification.
type Entry struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Name      string          `json:"name"`
	Module    string          `json:"module,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry converts a bus event into a journal entry with a fresh ID.
func NewEntry(e event.Event) (Entry, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: marshal %s payload: %w", e.Name, err)
	}
	return Entry{
		ID:        uuid.NewString(),
		Name:      string(e.Name),
		Module:    moduleOf(e.Payload),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// moduleOf extracts the module a payload refers to, if any.
func moduleOf(payload any) string {
	switch p := payload.(type) {
	case gate.ModuleID:
		return string(p)
	case panel.Toggled:
		return string(p.Module)
	case gate.Diagnostic:
		ids := make([]string, len(p.Modules))
		for i, id := range p.Modules {
			ids[i] = string(id)
		}
		return strings.Join(ids, ",")
	default:
		return ""
	}
}

// Store is the SQLite-backed notification journal.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// Append stores e and prunes the oldest rows beyond the configured cap.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(e.Payload) == 0 {
		e.Payload = json.RawMessage("null")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, name, module, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Module, string(e.Payload),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}

	if s.maxEntries > 0 {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM entries WHERE seq <= (
				SELECT seq FROM entries ORDER BY seq DESC LIMIT 1 OFFSET ?
			)`, s.maxEntries); err != nil {
			return fmt.Errorf("journal: prune: %w", err)
		}
	}
	return nil
}

// Recent returns up to n entries, newest first. When module is non-empty
// only entries about that module are returned.
func (s *Store) Recent(ctx context.Context, n int, module string) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if module == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT seq, id, name, module, payload, created_at
			FROM entries ORDER BY seq DESC LIMIT ?`, n)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT seq, id, name, module, payload, created_at
			FROM entries WHERE module = ? ORDER BY seq DESC LIMIT ?`, module, n)
	}
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			payload   string
			createdAt string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.Name, &e.Module, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate entries: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
