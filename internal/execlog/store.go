package execlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/0xSardius/tidal-sub000/internal/engine"
)

// Record is one journaled execution: what was attempted, where it stands and
// every status update observed along the way.
type Record struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	ChainID   int64           `json:"chain_id"`
	Account   string          `json:"account"`
	Token     string          `json:"token"`
	Target    string          `json:"target"`
	Amount    string          `json:"amount"`
	Status    string          `json:"status"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Error     string          `json:"error,omitempty"`
	Updates   []engine.Update `json:"updates,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

// NewRecord seeds a pending record with a fresh id.
func NewRecord(kind string, chainID int64, account, token, target, amount string) Record {
	now := time.Now().UTC().Format(time.RFC3339)
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		ChainID:   chainID,
		Account:   account,
		Token:     token,
		Target:    target,
		Amount:    amount,
		Status:    "pending",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Store is the local execution journal. Writes are serialized through a file
// lock so concurrent invocations do not interleave.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			chain_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_executions_status_updated ON executions(status, updated_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(record Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("save execution: missing id")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}
	createdUnix, _ := parseRFC3339Unix(record.CreatedAt)
	updatedUnix, _ := parseRFC3339Unix(record.UpdatedAt)
	if createdUnix == 0 {
		createdUnix = time.Now().UTC().Unix()
	}
	if updatedUnix == 0 {
		updatedUnix = time.Now().UTC().Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO executions (id, kind, status, chain_id, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind,
			status=excluded.status,
			chain_id=excluded.chain_id,
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, record.ID, record.Kind, record.Status, record.ChainID, createdUnix, updatedUnix, payload)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

func (s *Store) Get(id string) (Record, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM executions WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("execution not found: %s", id)
		}
		return Record{}, fmt.Errorf("read execution: %w", err)
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return Record{}, fmt.Errorf("decode execution payload: %w", err)
	}
	return record, nil
}

// List returns the most recently updated records, optionally filtered by
// status.
func (s *Store) List(status string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if strings.TrimSpace(status) == "" {
		rows, err = s.db.Query("SELECT payload FROM executions ORDER BY updated_at DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM executions WHERE status = ? ORDER BY updated_at DESC LIMIT ?", status, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode execution row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}
	return records, nil
}

func parseRFC3339Unix(v string) (int64, bool) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), true
}
