// Package sqlitebackend implements the backend command executor over a
// SQLite database using modernc.org/sqlite (pure Go, no CGO).
package sqlitebackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/logger"
	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	case_number TEXT,
	department TEXT,
	client TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	last_opened_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	folder_path TEXT,
	absolute_path TEXT UNIQUE NOT NULL,
	file_hash TEXT,
	file_type TEXT,
	file_size INTEGER,
	created_at INTEGER,
	modified_at INTEGER,
	status TEXT DEFAULT 'unreviewed',
	source_directory TEXT,
	deleted INTEGER DEFAULT 0,
	FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	file_id TEXT,
	content TEXT NOT NULL,
	pinned INTEGER DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE,
	FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS file_metadata (
	file_id TEXT PRIMARY KEY,
	extracted BLOB,
	last_scanned_at INTEGER,
	FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS case_sources (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	source_path TEXT NOT NULL,
	source_type TEXT DEFAULT 'folder',
	added_at INTEGER NOT NULL,
	FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE,
	UNIQUE(case_id, source_path)
);

CREATE INDEX IF NOT EXISTS idx_files_case_id ON files(case_id);
CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
CREATE INDEX IF NOT EXISTS idx_files_hash ON files(file_hash);
CREATE INDEX IF NOT EXISTS idx_files_case_id_status ON files(case_id, status);
CREATE INDEX IF NOT EXISTS idx_notes_case_id ON notes(case_id);
CREATE INDEX IF NOT EXISTS idx_notes_case_file ON notes(case_id, file_id);
CREATE INDEX IF NOT EXISTS idx_case_sources_case_id ON case_sources(case_id);
`

// Backend executes commands against a SQLite database.
type Backend struct {
	db    *sql.DB
	log   logger.Logger
	clock func() time.Time
}

var _ backend.Invoker = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the backend's logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithClock overrides the time source. Useful in tests.
func WithClock(clock func() time.Time) Option {
	return func(b *Backend) { b.clock = clock }
}

// New opens (creating if needed) the case database at dbPath.
// If dbPath is empty or ":memory:", an in-memory database is used.
func New(dbPath string, opts ...Option) (*Backend, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbPath)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY between them and keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrap(err, pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}

	b := &Backend{
		db:    db,
		log:   logger.NewConsoleLogger(logger.GetLevelFromEnv()).WithPrefix("[backend]"),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Close closes the underlying database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Invoke dispatches a command. Arguments cross the boundary as JSON, and the
// result comes back as JSON, mirroring how the UI shell talks to the
// executor.
func (b *Backend) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrapf(backend.ErrInvalidArgs, "encoding %s args: %v", command, err)
	}
	result, err := b.dispatch(ctx, command, raw)
	if err != nil {
		b.log.Debug("%s failed: %v", command, err)
		return nil, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s result", command)
	}
	return out, nil
}

func (b *Backend) dispatch(ctx context.Context, command string, raw json.RawMessage) (any, error) {
	switch command {
	case backend.CmdCreateCase:
		return invoke(ctx, b, raw, (*Backend).createCase)
	case backend.CmdLoadFiles:
		return invoke(ctx, b, raw, (*Backend).loadFiles)
	case backend.CmdGetFileCounts:
		return invoke(ctx, b, raw, (*Backend).fileCounts)
	case backend.CmdLoadDuplicateGroups:
		return invoke(ctx, b, raw, (*Backend).duplicateGroups)
	case backend.CmdGetNoteCounts:
		return invoke(ctx, b, raw, (*Backend).noteCounts)
	case backend.CmdLoadNotes:
		return invoke(ctx, b, raw, (*Backend).loadNotes)
	case backend.CmdLoadSources:
		return invoke(ctx, b, raw, (*Backend).loadSources)
	case backend.CmdIngestFiles:
		return invoke(ctx, b, raw, (*Backend).ingestFiles)
	case backend.CmdSyncCaseFolder:
		return invoke(ctx, b, raw, (*Backend).syncCaseFolder)
	case backend.CmdDeleteFiles:
		return invoke(ctx, b, raw, (*Backend).deleteFiles)
	case backend.CmdUpdateFileStatus:
		return invoke(ctx, b, raw, (*Backend).updateFileStatus)
	case backend.CmdAddNote:
		return invoke(ctx, b, raw, (*Backend).addNote)
	case backend.CmdUpdateNote:
		return invoke(ctx, b, raw, (*Backend).updateNote)
	case backend.CmdDeleteNote:
		return invoke(ctx, b, raw, (*Backend).deleteNote)
	case backend.CmdAddSource:
		return invoke(ctx, b, raw, (*Backend).addSource)
	default:
		return nil, errors.Wrapf(backend.ErrUnknownCommand, "%q", command)
	}
}

// invoke decodes the raw arguments into the handler's argument type and runs it.
func invoke[A, R any](ctx context.Context, b *Backend, raw json.RawMessage, handler func(*Backend, context.Context, A) (R, error)) (any, error) {
	var args A
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, errors.Wrapf(backend.ErrInvalidArgs, "decoding args: %v", err)
		}
	}
	return handler(b, ctx, args)
}

func (b *Backend) now() int64 {
	return b.clock().Unix()
}
