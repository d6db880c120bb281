// Package backend defines the boundary to the command executor: the command
// names, their argument and result shapes, and the Invoker interface the
// client speaks. The executor itself is opaque to callers; it only has to
// resolve commands with JSON-serializable results.
package backend

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Read commands. Results of these are cacheable.
const (
	CmdLoadFiles           = "load_files"
	CmdGetFileCounts       = "get_file_counts"
	CmdLoadDuplicateGroups = "load_duplicate_groups"
	CmdGetNoteCounts       = "get_note_counts"
	CmdLoadNotes           = "load_notes"
	CmdLoadSources         = "load_sources"
)

// Mutation commands. These are never cached; after one succeeds the caller
// must evict the cached read commands it could have staled.
const (
	CmdCreateCase       = "create_case"
	CmdIngestFiles      = "ingest_files"
	CmdSyncCaseFolder   = "sync_case_folder"
	CmdDeleteFiles      = "delete_files"
	CmdUpdateFileStatus = "update_file_status"
	CmdAddNote          = "add_note"
	CmdUpdateNote       = "update_note"
	CmdDeleteNote       = "delete_note"
	CmdAddSource        = "add_source"
)

// Invoker executes a backend command. Implementations must return a
// JSON-serializable result or an error, and repeated invocation of read
// commands with identical arguments must be safe.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any) (json.RawMessage, error)
}

var (
	// ErrUnknownCommand is returned for a command name the executor does
	// not implement.
	ErrUnknownCommand = errors.New("backend: unknown command")
	// ErrNotFound is returned when the referenced case, file or note does
	// not exist.
	ErrNotFound = errors.New("backend: not found")
	// ErrInvalidArgs is returned when a command's arguments fail to decode
	// or validate.
	ErrInvalidArgs = errors.New("backend: invalid arguments")
)
