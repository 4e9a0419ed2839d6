// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists session messages and file artifacts in SQLite.
// File bytes live inline in the database unless a BlobStore is configured,
// in which case the database keeps only the object key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultDBPath = "data/deep-research.db"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore holds file artifact bytes outside the database.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Message is one persisted session message.
type Message struct {
	ID        int64     `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// File is one persisted file artifact. Data is only filled by Store.File.
type File struct {
	ID        string    `json:"id" yaml:"id"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Filename  string    `json:"filename" yaml:"filename"`
	MimeType  string    `json:"mimetype" yaml:"mimetype"`
	Size      int64     `json:"size" yaml:"size"`
	BlobKey   string    `json:"blob_key,omitempty" yaml:"blob_key,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Data      []byte    `json:"-" yaml:"-"`
}

// Store manages the SQLite database.
type Store struct {
	db    *sql.DB
	blobs BlobStore
	log   *zap.Logger
	now   func() time.Time
}

// Open opens or creates the database at cfg.DBPath and creates the schema if
// it does not exist. blobs may be nil.
func Open(cfg types.StorageConfig, blobs BlobStore, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path := cfg.DBPath
	if path == "" {
		path = defaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, blobs: blobs, log: log, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`,
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			filename TEXT NOT NULL,
			mimetype TEXT NOT NULL,
			size INTEGER NOT NULL,
			data BLOB,
			blob_key TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_session ON files(session_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveArtifact appends one message to a session's history.
func (s *Store) SaveArtifact(ctx context.Context, sessionID, role, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, text, s.now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving message for session %s: %w", sessionID, err)
	}
	return nil
}

// SaveFileArtifact stores a file not bound to any session and returns its id.
func (s *Store) SaveFileArtifact(ctx context.Context, filename string, data []byte, mimetype string, size int64) (string, error) {
	return s.saveFile(ctx, "", filename, data, mimetype, size)
}

// SessionFiles returns a file saver that tags every artifact with sessionID.
func (s *Store) SessionFiles(sessionID string) *SessionFiles {
	return &SessionFiles{store: s, sessionID: sessionID}
}

// SessionFiles saves file artifacts on behalf of one session.
type SessionFiles struct {
	store     *Store
	sessionID string
}

// SaveFileArtifact stores a file for the session and returns its id.
func (f *SessionFiles) SaveFileArtifact(ctx context.Context, filename string, data []byte, mimetype string, size int64) (string, error) {
	return f.store.saveFile(ctx, f.sessionID, filename, data, mimetype, size)
}

func (s *Store) saveFile(ctx context.Context, sessionID, filename string, data []byte, mimetype string, size int64) (string, error) {
	id := uuid.NewString()
	if size <= 0 {
		size = int64(len(data))
	}

	inline, blobKey := data, ""
	if s.blobs != nil {
		blobKey = blobKeyFor(sessionID, id, filename)
		if err := s.blobs.Put(ctx, blobKey, data, mimetype); err != nil {
			return "", fmt.Errorf("uploading %s: %w", filename, err)
		}
		inline = nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, session_id, filename, mimetype, size, data, blob_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullable(sessionID), filename, mimetype, size, inline, nullable(blobKey), s.now().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("saving file %s: %w", filename, err)
	}
	s.log.Debug("file artifact saved",
		zap.String("id", id), zap.String("filename", filename), zap.Int64("size", size), zap.Bool("blob", blobKey != ""))
	return id, nil
}

func blobKeyFor(sessionID, id, filename string) string {
	if sessionID == "" {
		sessionID = "_"
	}
	return sessionID + "/" + id + "/" + filename
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Messages returns a session's messages in insertion order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			created string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Files returns the metadata of a session's file artifacts in creation order.
func (s *Store) Files(ctx context.Context, sessionID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, filename, mimetype, size, blob_key, created_at
		 FROM files WHERE session_id = ? ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// File returns one file artifact with its bytes.
func (s *Store) File(ctx context.Context, id string) (File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, filename, mimetype, size, blob_key, created_at, data FROM files WHERE id = ?`, id)
	f, err := scanFile(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return File{}, err
	}
	if f.BlobKey != "" {
		if s.blobs == nil {
			return File{}, fmt.Errorf("file %s is stored in a blob store that is not configured", id)
		}
		data, err := s.blobs.Get(ctx, f.BlobKey)
		if err != nil {
			return File{}, fmt.Errorf("downloading %s: %w", f.BlobKey, err)
		}
		f.Data = data
	}
	return f, nil
}

func scanFile(scan func(dest ...any) error, withData bool) (File, error) {
	var (
		f                File
		session, blobKey sql.NullString
		created          string
	)
	dest := []any{&f.ID, &session, &f.Filename, &f.MimeType, &f.Size, &blobKey, &created}
	if withData {
		dest = append(dest, &f.Data)
	}
	if err := scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, err
		}
		return File{}, fmt.Errorf("scanning file: %w", err)
	}
	f.SessionID = session.String
	f.BlobKey = blobKey.String
	f.CreatedAt = parseTime(created)
	return f, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
