package archive

import (
	"fmt"
	"sync"
	"time"

	"crawshaw.io/sqlite"

	"github.com/localrivet/chatcycle/internal/errortypes"
	"github.com/localrivet/chatcycle/internal/util"
)

// SQLiteStore is an implementation of Store that uses SQLite.
type SQLiteStore struct {
	conn   *sqlite.Conn
	dbPath string

	// mu serializes access to conn, which is not safe for concurrent use.
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLiteStore instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Initialize initializes the store with the given database path.
func (s *SQLiteStore) Initialize(dbPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dbPath = dbPath

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to open SQLite database")
	}
	s.conn = conn

	if err := s.createTable(); err != nil {
		s.conn.Close()
		s.conn = nil
		return errortypes.DatabaseError(err, "failed to create table")
	}

	return nil
}

// createTable creates the summaries table if it doesn't exist.
func (s *SQLiteStore) createTable() error {
	for _, query := range []string{
		`CREATE TABLE IF NOT EXISTS summaries (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			document_hash TEXT NOT NULL,
			summary TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS summaries_created_at ON summaries (created_at);`,
	} {
		if err := s.exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) exec(query string) error {
	stmt, err := s.conn.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Reset()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Close closes the store and releases any resources.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	if s.conn == nil {
		return errortypes.DatabaseError(fmt.Errorf("store is not initialized"), "archive unavailable")
	}
	return nil
}

// Store appends a summary record.
func (s *SQLiteStore) Store(source, document, summary string, chunkCount int) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	now := time.Now()
	docHash := util.DocumentHash(document)
	rec := &Record{
		ID:           util.GenerateHash(docHash+summary, now.UnixNano()),
		Source:       source,
		DocumentHash: docHash,
		Summary:      summary,
		ChunkCount:   chunkCount,
		CreatedAt:    now,
	}

	stmt, err := s.conn.Prepare(`
	INSERT INTO summaries (id, source, document_hash, summary, chunk_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare insert statement")
	}
	defer stmt.Reset()

	// Bind parameters - indices in sqlite are 1-based
	stmt.BindText(1, rec.ID)
	stmt.BindText(2, rec.Source)
	stmt.BindText(3, rec.DocumentHash)
	stmt.BindText(4, rec.Summary)
	stmt.BindInt64(5, int64(rec.ChunkCount))
	stmt.BindInt64(6, rec.CreatedAt.UnixNano())

	if _, err := stmt.Step(); err != nil {
		return nil, errortypes.DatabaseError(err, "failed to insert summary record")
	}

	return rec, nil
}

// Get returns the record with the given id.
func (s *SQLiteStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stmt, err := s.conn.Prepare(`
	SELECT id, source, document_hash, summary, chunk_count, created_at
	FROM summaries WHERE id = ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to read summary record")
	}
	if !hasRow {
		return nil, errortypes.DatabaseError(ErrNotFound, "get failed").WithField("id", id)
	}
	return scanRecord(stmt), nil
}

// List returns up to limit records, newest first.
func (s *SQLiteStore) List(limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	stmt, err := s.conn.Prepare(`
	SELECT id, source, document_hash, summary, chunk_count, created_at
	FROM summaries ORDER BY created_at DESC, rowid DESC LIMIT ?;`)
	if err != nil {
		return nil, errortypes.DatabaseError(err, "failed to prepare select statement")
	}
	defer stmt.Reset()

	stmt.BindInt64(1, int64(limit))

	var records []*Record
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, errortypes.DatabaseError(err, "failed to list summary records")
		}
		if !hasRow {
			break
		}
		records = append(records, scanRecord(stmt))
	}
	return records, nil
}

// scanRecord reads the current row. Column indices are 0-based.
func scanRecord(stmt *sqlite.Stmt) *Record {
	return &Record{
		ID:           stmt.ColumnText(0),
		Source:       stmt.ColumnText(1),
		DocumentHash: stmt.ColumnText(2),
		Summary:      stmt.ColumnText(3),
		ChunkCount:   int(stmt.ColumnInt64(4)),
		CreatedAt:    time.Unix(0, stmt.ColumnInt64(5)),
	}
}

// Delete removes one record.
func (s *SQLiteStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	stmt, err := s.conn.Prepare(`DELETE FROM summaries WHERE id = ?;`)
	if err != nil {
		return errortypes.DatabaseError(err, "failed to prepare delete statement")
	}
	defer stmt.Reset()

	stmt.BindText(1, id)
	if _, err := stmt.Step(); err != nil {
		return errortypes.DatabaseError(err, "failed to delete summary record")
	}
	if s.conn.Changes() == 0 {
		return errortypes.DatabaseError(ErrNotFound, "delete failed").WithField("id", id)
	}
	return nil
}

// Clear removes every record.
func (s *SQLiteStore) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	if err := s.exec(`DELETE FROM summaries;`); err != nil {
		return 0, errortypes.DatabaseError(err, "failed to clear summaries")
	}
	return s.conn.Changes(), nil
}
