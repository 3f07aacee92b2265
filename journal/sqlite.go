package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteIndex records raid events into a queryable SQLite database. Writes happen on a
// single goroutine fed by a buffered channel; events are dropped when it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex // Guards closed against sends on ch
	closed  bool
	dropped atomic.Uint64
}

type req struct {
	event Event
	done  chan struct{} // Set for sync requests only
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS raids (
			raid_id TEXT PRIMARY KEY,
			base_id INTEGER NOT NULL,
			attackers TEXT NOT NULL,
			stolen_json TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_raids_base ON raids(base_id);`,
		`CREATE TABLE IF NOT EXISTS thefts (
			raid_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			attacker TEXT NOT NULL,
			resource TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (raid_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS deductions (
			raid_id TEXT NOT NULL,
			base_id INTEGER NOT NULL,
			resource TEXT NOT NULL,
			amount INTEGER NOT NULL,
			PRIMARY KEY (raid_id, resource)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Emit(e Event) {
	if s == nil || e.Kind == Departed {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{event: e}:
	default:
		s.dropped.Add(1)
	}
}

// Sync blocks until every event queued before the call has been written.
func (s *SQLiteIndex) Sync() {
	if s == nil {
		return
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	done := make(chan struct{})
	s.ch <- req{done: done}
	s.mu.RUnlock()
	<-done
}

// Dropped reports how many events were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) loop() {
	seq := map[string]int{}
	for r := range s.ch {
		if r.done != nil {
			close(r.done)
			continue
		}
		if err := s.write(r.event, seq); err != nil {
			log.Warn().Err(err).Str("raid", r.event.RaidID).Msg("sqlite index: write event")
		}
	}
}

func (s *SQLiteIndex) write(e Event, seq map[string]int) error {
	switch e.Kind {
	case Stole:
		seq[e.RaidID]++
		_, err := s.db.Exec(`INSERT OR REPLACE INTO thefts(raid_id,seq,attacker,resource,amount) VALUES(?,?,?,?,?)`,
			e.RaidID, seq[e.RaidID], e.Attacker, e.Resource, e.Amount)
		return err
	case Deducted:
		_, err := s.db.Exec(`INSERT OR REPLACE INTO deductions(raid_id,base_id,resource,amount) VALUES(?,?,?,?)`,
			e.RaidID, int64(e.BaseID), e.Resource, e.Amount)
		return err
	case Completed:
		delete(seq, e.RaidID)
		attackers, err := json.Marshal(e.Attackers)
		if err != nil {
			return err
		}
		stolen, err := json.Marshal(e.Stolen)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(`INSERT OR REPLACE INTO raids(raid_id,base_id,attackers,stolen_json,completed_at) VALUES(?,?,?,?,?)`,
			e.RaidID, int64(e.BaseID), string(attackers), string(stolen), e.Time.UTC().Format(time.RFC3339Nano))
		return err
	}
	return nil
}

// RaidCount returns the number of completed raids recorded against a base.
func (s *SQLiteIndex) RaidCount(ctx context.Context, baseID uint64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raids WHERE base_id = ?`, int64(baseID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count raids: %w", err)
	}
	return n, nil
}

// DeductedTotals sums every deduction recorded against a base, by resource.
func (s *SQLiteIndex) DeductedTotals(ctx context.Context, baseID uint64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT resource, SUM(amount) FROM deductions WHERE base_id = ? GROUP BY resource`, int64(baseID))
	if err != nil {
		return nil, fmt.Errorf("query deductions: %w", err)
	}
	defer rows.Close()

	totals := map[string]int{}
	for rows.Next() {
		var name string
		var amount int
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, err
		}
		totals[name] = amount
	}
	return totals, rows.Err()
}

// Thefts returns the number of theft rows recorded for a raid.
func (s *SQLiteIndex) Thefts(ctx context.Context, raidID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thefts WHERE raid_id = ?`, raidID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count thefts: %w", err)
	}
	return n, nil
}
