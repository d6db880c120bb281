// Package client is the typed service layer the UI shell talks to. Every
// read goes through the request cache; every mutation goes straight to the
// backend and, once it succeeds, evicts the cached commands it staled.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/logger"
	"github.com/casedesk/go-casedesk/reqcache"
	"github.com/cockroachdb/errors"
)

// TTLs holds the cache lifetime per read command family. Zero values fall
// back to the cache's default TTL.
type TTLs struct {
	Files      time.Duration
	Counts     time.Duration
	Duplicates time.Duration
	Notes      time.Duration
	Sources    time.Duration
}

// DefaultTTLs mirror how volatile each read is: listings refresh faster
// than source folders, which rarely change.
var DefaultTTLs = TTLs{
	Files:      30 * time.Second,
	Counts:     30 * time.Second,
	Duplicates: time.Minute,
	Notes:      30 * time.Second,
	Sources:    5 * time.Minute,
}

// invalidations maps each mutation command to the read commands whose cached
// results it can stale. Every mutating method must consult this table after
// its backend call succeeds; a mutation missing from here is a stale-read
// bug. Keep it in sync with the backend command surface.
var invalidations = map[string][]string{
	backend.CmdIngestFiles: {
		backend.CmdLoadFiles, backend.CmdGetFileCounts,
		backend.CmdLoadDuplicateGroups, backend.CmdLoadSources,
	},
	backend.CmdSyncCaseFolder: {
		backend.CmdLoadFiles, backend.CmdGetFileCounts,
		backend.CmdLoadDuplicateGroups, backend.CmdLoadSources,
	},
	backend.CmdDeleteFiles: {
		backend.CmdLoadFiles, backend.CmdGetFileCounts,
		backend.CmdLoadDuplicateGroups, backend.CmdGetNoteCounts,
	},
	backend.CmdUpdateFileStatus: {
		backend.CmdLoadFiles, backend.CmdGetFileCounts,
	},
	backend.CmdAddNote:    {backend.CmdGetNoteCounts, backend.CmdLoadNotes},
	backend.CmdUpdateNote: {backend.CmdGetNoteCounts, backend.CmdLoadNotes},
	backend.CmdDeleteNote: {backend.CmdGetNoteCounts, backend.CmdLoadNotes},
	backend.CmdAddSource:  {backend.CmdLoadSources},
}

// Client issues backend commands on behalf of the UI.
type Client struct {
	invoker backend.Invoker
	cache   *reqcache.Cache
	log     logger.Logger
	ttls    TTLs
}

// Option configures a Client.
type Option func(*Client)

// WithTTLs overrides the per-command cache lifetimes.
func WithTTLs(ttls TTLs) Option {
	return func(c *Client) { c.ttls = ttls }
}

// WithLogger sets the client's logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client reading through cache and executing against invoker.
func New(invoker backend.Invoker, cache *reqcache.Cache, opts ...Option) *Client {
	c := &Client{
		invoker: invoker,
		cache:   cache,
		log:     logger.NewConsoleLogger(logger.GetLevelFromEnv()).WithPrefix("[client]"),
		ttls:    DefaultTTLs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheStats exposes the cache contents for diagnostics.
func (c *Client) CacheStats() reqcache.Stats {
	return c.cache.Stats()
}

// EvictCache drops cached entries, all of them or per command.
func (c *Client) EvictCache(commands ...string) {
	c.cache.Evict(commands...)
}

// cachedCall routes a read through the cache; concurrent identical reads
// share a single backend round-trip.
func cachedCall[T any](ctx context.Context, c *Client, command string, args any, ttl time.Duration) (T, error) {
	return reqcache.Do(ctx, c.cache, command, args, ttl, func(ctx context.Context) (T, error) {
		return invoke[T](ctx, c, command, args)
	})
}

// invoke executes one backend command and decodes its result.
func invoke[T any](ctx context.Context, c *Client, command string, args any) (T, error) {
	var out T
	raw, err := c.invoker.Invoke(ctx, command, args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrapf(err, "decoding %s result", command)
	}
	return out, nil
}

// mutate executes a mutation command and evicts the cached reads it staled,
// before returning to the caller.
func mutate[T any](ctx context.Context, c *Client, command string, args any) (T, error) {
	out, err := invoke[T](ctx, c, command, args)
	if err != nil {
		return out, err
	}
	c.cache.Evict(invalidations[command]...)
	return out, nil
}

// Reads.

func (c *Client) LoadFiles(ctx context.Context, caseID string) ([]backend.File, error) {
	return cachedCall[[]backend.File](ctx, c, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: caseID}, c.ttls.Files)
}

func (c *Client) GetFileCounts(ctx context.Context, caseID string) (backend.FileCounts, error) {
	return cachedCall[backend.FileCounts](ctx, c, backend.CmdGetFileCounts, backend.GetFileCountsArgs{CaseID: caseID}, c.ttls.Counts)
}

func (c *Client) LoadDuplicateGroups(ctx context.Context, caseID string) ([]backend.DuplicateGroup, error) {
	return cachedCall[[]backend.DuplicateGroup](ctx, c, backend.CmdLoadDuplicateGroups, backend.LoadDuplicateGroupsArgs{CaseID: caseID}, c.ttls.Duplicates)
}

func (c *Client) GetNoteCounts(ctx context.Context, caseID string) ([]backend.NoteCount, error) {
	return cachedCall[[]backend.NoteCount](ctx, c, backend.CmdGetNoteCounts, backend.GetNoteCountsArgs{CaseID: caseID}, c.ttls.Notes)
}

func (c *Client) LoadNotes(ctx context.Context, caseID, fileID string) ([]backend.Note, error) {
	return cachedCall[[]backend.Note](ctx, c, backend.CmdLoadNotes, backend.LoadNotesArgs{CaseID: caseID, FileID: fileID}, c.ttls.Notes)
}

func (c *Client) LoadSources(ctx context.Context, caseID string) ([]backend.CaseSource, error) {
	return cachedCall[[]backend.CaseSource](ctx, c, backend.CmdLoadSources, backend.LoadSourcesArgs{CaseID: caseID}, c.ttls.Sources)
}

// Mutations. None of these touch the cache on the way in; all of them evict
// on the way out.

func (c *Client) CreateCase(ctx context.Context, args backend.CreateCaseArgs) (backend.Case, error) {
	// A fresh case has nothing cached yet, so there is nothing to evict.
	return invoke[backend.Case](ctx, c, backend.CmdCreateCase, args)
}

func (c *Client) IngestFiles(ctx context.Context, caseID, sourcePath string) (backend.IngestResult, error) {
	return mutate[backend.IngestResult](ctx, c, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: caseID, SourcePath: sourcePath})
}

func (c *Client) SyncCaseFolder(ctx context.Context, caseID, sourcePath string) (backend.SyncResult, error) {
	return mutate[backend.SyncResult](ctx, c, backend.CmdSyncCaseFolder, backend.SyncCaseFolderArgs{CaseID: caseID, SourcePath: sourcePath})
}

func (c *Client) DeleteFiles(ctx context.Context, fileIDs []string) (backend.DeleteResult, error) {
	return mutate[backend.DeleteResult](ctx, c, backend.CmdDeleteFiles, backend.DeleteFilesArgs{FileIDs: fileIDs})
}

func (c *Client) UpdateFileStatus(ctx context.Context, fileIDs []string, status string) (backend.UpdateStatusResult, error) {
	return mutate[backend.UpdateStatusResult](ctx, c, backend.CmdUpdateFileStatus, backend.UpdateFileStatusArgs{FileIDs: fileIDs, Status: status})
}

func (c *Client) AddNote(ctx context.Context, args backend.AddNoteArgs) (backend.Note, error) {
	return mutate[backend.Note](ctx, c, backend.CmdAddNote, args)
}

func (c *Client) UpdateNote(ctx context.Context, args backend.UpdateNoteArgs) (backend.Note, error) {
	return mutate[backend.Note](ctx, c, backend.CmdUpdateNote, args)
}

func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	_, err := mutate[struct{}](ctx, c, backend.CmdDeleteNote, backend.DeleteNoteArgs{NoteID: noteID})
	return err
}

func (c *Client) AddSource(ctx context.Context, args backend.AddSourceArgs) (backend.CaseSource, error) {
	return mutate[backend.CaseSource](ctx, c, backend.CmdAddSource, args)
}
