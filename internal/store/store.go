// Package store persists a match's event/reaction log to SQLite so a
// completed or in-flight match can be replayed and audited (spec.md §6's
// "Persisted state layout": the event log, seed, ruleset hash, and
// pending inputs are sufficient to reconstruct state).
//
// Grounded on the teacher's store.Store: WAL-mode SQLite, a single
// writer connection, PRAGMA-driven idempotent schema application, and
// an embedded schema.sql — adapted from NYSM's invocation/completion
// tables to matchcore's events/reactions/pending_inputs tables.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teapot-games/matchcore/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for one or more matches' event logs.
// Uses SQLite in WAL mode so readers (the `replay`/`trace` CLI commands)
// don't block a live match's writer.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, applying pragmas and
// the schema. Idempotent - safe to call against an existing file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connect %s: %w", path, err)
	}
	// SQLite has one writer; the match actor is itself single-writer, so
	// a single connection avoids SQLITE_BUSY without a connection pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection for the `trace`/`replay` CLI
// commands that read back ad hoc projections of the log.
func (s *Store) DB() *sql.DB { return s.db }

// RegisterMatch records a new match's seed and ruleset hash. Call once
// before the first AppendEvent for a given matchID.
func (s *Store) RegisterMatch(matchID, rulesetHash string, seed int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO matches (id, ruleset_hash, seed) VALUES (?, ?, ?)`,
		matchID, rulesetHash, seed,
	)
	if err != nil {
		return fmt.Errorf("store: register match %s: %w", matchID, err)
	}
	return nil
}

// EventStore wraps a Store bound to a single matchID, implementing the
// match.Store interface match.Actor is constructed with (AppendEvent,
// AppendReaction).
type EventStore struct {
	s       *Store
	matchID string
}

// ForMatch returns a match.Store-shaped appender scoped to matchID.
func (s *Store) ForMatch(matchID string) *EventStore {
	return &EventStore{s: s, matchID: matchID}
}

// AppendEvent persists one applied event. INSERT OR IGNORE on the
// content-addressed id makes replaying an already-persisted log onto
// the same store a no-op rather than a duplicate-key error.
func (e *EventStore) AppendEvent(ev ir.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal event %s payload: %w", ev.ID, err)
	}
	_, err = e.s.db.Exec(
		`INSERT OR IGNORE INTO events (match_id, id, seq, type, payload, caused_by, flow_token)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.matchID, ev.ID, ev.Seq, ev.Type, string(payload), ev.CausedBy, ev.FlowToken,
	)
	if err != nil {
		return fmt.Errorf("store: append event %s: %w", ev.ID, err)
	}
	return nil
}

// AppendReaction persists one resolved reaction.
func (e *EventStore) AppendReaction(rx ir.Reaction) error {
	bindings, err := json.Marshal(rx.Bindings)
	if err != nil {
		return fmt.Errorf("store: marshal reaction %s bindings: %w", rx.ID, err)
	}
	pre := 0
	if rx.Pre {
		pre = 1
	}
	_, err = e.s.db.Exec(
		`INSERT OR IGNORE INTO reactions (match_id, id, seq, trigger_id, event_id, bindings, pre)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.matchID, rx.ID, rx.Seq, rx.TriggerID, rx.EventID, string(bindings), pre,
	)
	if err != nil {
		return fmt.Errorf("store: append reaction %s: %w", rx.ID, err)
	}
	return nil
}

// SavePendingInput upserts the match's single observable pending input
// (spec.md §3: at most one unresolved pending input at a time).
func (s *Store) SavePendingInput(matchID, inputID, actionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO pending_inputs (match_id, input_id, action_id) VALUES (?, ?, ?)
		 ON CONFLICT(match_id) DO UPDATE SET input_id = excluded.input_id, action_id = excluded.action_id`,
		matchID, inputID, actionID,
	)
	if err != nil {
		return fmt.Errorf("store: save pending input for %s: %w", matchID, err)
	}
	return nil
}

// ClearPendingInput removes the match's pending input row once it is
// resolved (submit_input) or the match ends.
func (s *Store) ClearPendingInput(matchID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_inputs WHERE match_id = ?`, matchID)
	if err != nil {
		return fmt.Errorf("store: clear pending input for %s: %w", matchID, err)
	}
	return nil
}

// PendingInput is the persisted form of an unresolved input request.
type PendingInput struct {
	InputID  string
	ActionID string
}

// LoadPendingInput returns the match's pending input, if any (nil, nil
// if none is outstanding).
func (s *Store) LoadPendingInput(matchID string) (*PendingInput, error) {
	row := s.db.QueryRow(`SELECT input_id, action_id FROM pending_inputs WHERE match_id = ?`, matchID)
	var p PendingInput
	if err := row.Scan(&p.InputID, &p.ActionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load pending input for %s: %w", matchID, err)
	}
	return &p, nil
}

// LoadEvents returns a match's full event log in apply-time (seq) order
// — the mechanism behind the `replay` and `trace` CLI commands and
// spec.md §6's "sufficient to reconstruct state" guarantee.
func (s *Store) LoadEvents(matchID string) ([]ir.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, seq, type, payload, caused_by, flow_token FROM events
		 WHERE match_id = ? ORDER BY seq ASC`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: load events for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []ir.Event
	for rows.Next() {
		var ev ir.Event
		var payload string
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Type, &payload, &ev.CausedBy, &ev.FlowToken); err != nil {
			return nil, fmt.Errorf("store: scan event row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("store: unmarshal event %s payload: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate events for %s: %w", matchID, err)
	}
	return out, nil
}

// MatchInfo is the persisted header row for a match.
type MatchInfo struct {
	ID          string
	RulesetHash string
	Seed        int64
	CreatedAt   string
}

// LoadMatch returns a match's header row.
func (s *Store) LoadMatch(matchID string) (*MatchInfo, error) {
	row := s.db.QueryRow(`SELECT id, ruleset_hash, seed, created_at FROM matches WHERE id = ?`, matchID)
	var m MatchInfo
	if err := row.Scan(&m.ID, &m.RulesetHash, &m.Seed, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store: match %s not found", matchID)
		}
		return nil, fmt.Errorf("store: load match %s: %w", matchID, err)
	}
	return &m, nil
}

// ListMatches returns every match id the store has a header row for, in
// creation order.
func (s *Store) ListMatches() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM matches ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list matches: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan match id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
