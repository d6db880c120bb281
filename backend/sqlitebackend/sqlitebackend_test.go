package sqlitebackend

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New("", WithLogger(logger.NewTestLogger()), WithClock(func() time.Time {
		return time.Unix(1_700_000_000, 0)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// call drives a command through the Invoke boundary the way the client does.
func call[T any](t *testing.T, b *Backend, command string, args any) T {
	t.Helper()
	raw, err := b.Invoke(context.Background(), command, args)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newCase(t *testing.T, b *Backend) backend.Case {
	return call[backend.Case](t, b, backend.CmdCreateCase, backend.CreateCaseArgs{Name: "Acme v. Doe"})
}

func TestCreateCaseValidation(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Invoke(context.Background(), backend.CmdCreateCase, backend.CreateCaseArgs{})
	assert.ErrorIs(t, err, backend.ErrInvalidArgs)
}

func TestUnknownCommand(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Invoke(context.Background(), "bogus_command", nil)
	assert.ErrorIs(t, err, backend.ErrUnknownCommand)
}

func TestLoadFilesUnknownCase(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Invoke(context.Background(), backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: "missing"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestIngestAndLoadFiles(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "statements/Bank_Statement Sep 25.pdf", "alpha")
	writeFile(t, root, "statements/duplicate.pdf", "alpha")
	writeFile(t, root, "notes.txt", "beta")

	res := call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	assert.Equal(t, 3, res.Ingested)
	assert.Equal(t, 0, res.Skipped)

	// Re-ingesting the same folder must be idempotent.
	res = call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	assert.Equal(t, 0, res.Ingested)
	assert.Equal(t, 3, res.Skipped)

	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 3)
	for _, f := range files {
		assert.Equal(t, backend.StatusUnreviewed, f.Status)
		assert.Equal(t, root, f.SourceDirectory)
		assert.NotEmpty(t, f.FileHash)
	}

	counts := call[backend.FileCounts](t, b, backend.CmdGetFileCounts, backend.GetFileCountsArgs{CaseID: c.ID})
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(3), counts.ByStatus[backend.StatusUnreviewed])

	// The ingested folder is recorded as a case source.
	sources := call[[]backend.CaseSource](t, b, backend.CmdLoadSources, backend.LoadSourcesArgs{CaseID: c.ID})
	require.Len(t, sources, 1)
	assert.Equal(t, root, sources[0].SourcePath)
}

func TestDuplicateGroups(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "a.pdf", "same-content")
	writeFile(t, root, "b.pdf", "same-content")
	writeFile(t, root, "c.pdf", "unique")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})

	groups := call[[]backend.DuplicateGroup](t, b, backend.CmdLoadDuplicateGroups, backend.LoadDuplicateGroupsArgs{CaseID: c.ID})
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
	assert.Len(t, groups[0].FileIDs, 2)
}

func TestNotesLifecycle(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "a.pdf", "x")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 1)

	caseNote := call[backend.Note](t, b, backend.CmdAddNote, backend.AddNoteArgs{CaseID: c.ID, Content: "case-level observation"})
	assert.Empty(t, caseNote.FileID)
	fileNote := call[backend.Note](t, b, backend.CmdAddNote, backend.AddNoteArgs{CaseID: c.ID, FileID: files[0].ID, Content: "looks forged"})
	assert.Equal(t, files[0].ID, fileNote.FileID)

	counts := call[[]backend.NoteCount](t, b, backend.CmdGetNoteCounts, backend.GetNoteCountsArgs{CaseID: c.ID})
	require.Len(t, counts, 2)
	assert.Equal(t, "", counts[0].FileID)
	assert.Equal(t, int64(1), counts[0].Count)
	assert.Equal(t, files[0].ID, counts[1].FileID)

	pinned := true
	updated := call[backend.Note](t, b, backend.CmdUpdateNote, backend.UpdateNoteArgs{NoteID: fileNote.ID, Content: "confirmed forged", Pinned: &pinned})
	assert.Equal(t, "confirmed forged", updated.Content)
	assert.True(t, updated.Pinned)

	notes := call[[]backend.Note](t, b, backend.CmdLoadNotes, backend.LoadNotesArgs{CaseID: c.ID, FileID: files[0].ID})
	require.Len(t, notes, 1)
	assert.Equal(t, "confirmed forged", notes[0].Content)

	call[struct{}](t, b, backend.CmdDeleteNote, backend.DeleteNoteArgs{NoteID: caseNote.ID})
	_, err := b.Invoke(context.Background(), backend.CmdDeleteNote, backend.DeleteNoteArgs{NoteID: caseNote.ID})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestSyncCaseFolder(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	keepPath := writeFile(t, root, "keep.pdf", "keep")
	writeFile(t, root, "gone.pdf", "gone")
	writeFile(t, root, "protected.pdf", "protected")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})

	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 3)
	var protectedID string
	for _, f := range files {
		if f.FileName == "protected" {
			protectedID = f.ID
		}
	}
	call[backend.Note](t, b, backend.CmdAddNote, backend.AddNoteArgs{CaseID: c.ID, FileID: protectedID, Content: "keep this"})

	// gone.pdf and protected.pdf vanish from disk, new.pdf shows up.
	require.NoError(t, os.Remove(filepath.Join(root, "gone.pdf")))
	require.NoError(t, os.Remove(filepath.Join(root, "protected.pdf")))
	writeFile(t, root, "new.pdf", "new")

	res := call[backend.SyncResult](t, b, backend.CmdSyncCaseFolder, backend.SyncCaseFolderArgs{CaseID: c.ID, SourcePath: root})
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 1, res.Kept, "files with notes survive a sync")

	files = call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.FileName)
	}
	assert.ElementsMatch(t, []string{"keep", "protected", "new"}, names)
	_ = keepPath
}

func TestDeleteFilesProtection(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "plain.pdf", "plain")
	writeFile(t, root, "noted.pdf", "noted")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})

	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 2)
	ids := map[string]string{}
	for _, f := range files {
		ids[f.FileName] = f.ID
	}
	call[backend.Note](t, b, backend.CmdAddNote, backend.AddNoteArgs{CaseID: c.ID, FileID: ids["noted"], Content: "evidence"})

	res := call[backend.DeleteResult](t, b, backend.CmdDeleteFiles, backend.DeleteFilesArgs{FileIDs: []string{ids["plain"], ids["noted"]}})
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.Protected)

	files = call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 1)
	assert.Equal(t, "noted", files[0].FileName)
}

func TestUpdateFileStatus(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "a.pdf", "a")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 1)

	res := call[backend.UpdateStatusResult](t, b, backend.CmdUpdateFileStatus, backend.UpdateFileStatusArgs{FileIDs: []string{files[0].ID}, Status: backend.StatusReviewed})
	assert.Equal(t, 1, res.Updated)

	files = call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	assert.Equal(t, backend.StatusReviewed, files[0].Status)

	counts := call[backend.FileCounts](t, b, backend.CmdGetFileCounts, backend.GetFileCountsArgs{CaseID: c.ID})
	assert.Equal(t, int64(1), counts.ByStatus[backend.StatusReviewed])

	_, err := b.Invoke(context.Background(), backend.CmdUpdateFileStatus, backend.UpdateFileStatusArgs{FileIDs: []string{files[0].ID}, Status: "bogus"})
	assert.ErrorIs(t, err, backend.ErrInvalidArgs)

	_, err = b.Invoke(context.Background(), backend.CmdUpdateFileStatus, backend.UpdateFileStatusArgs{FileIDs: []string{"missing"}, Status: backend.StatusFlagged})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestIngestRevivesSoftDeletedFile(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	root := t.TempDir()
	writeFile(t, root, "a.pdf", "a")
	call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	files := call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID})
	require.Len(t, files, 1)

	call[backend.DeleteResult](t, b, backend.CmdDeleteFiles, backend.DeleteFilesArgs{FileIDs: []string{files[0].ID}})
	assert.Empty(t, call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID}))

	res := call[backend.IngestResult](t, b, backend.CmdIngestFiles, backend.IngestFilesArgs{CaseID: c.ID, SourcePath: root})
	assert.Equal(t, 0, res.Ingested)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, call[[]backend.File](t, b, backend.CmdLoadFiles, backend.LoadFilesArgs{CaseID: c.ID}), 1)
}

func TestAddSource(t *testing.T) {
	b := newTestBackend(t)
	c := newCase(t, b)

	s := call[backend.CaseSource](t, b, backend.CmdAddSource, backend.AddSourceArgs{CaseID: c.ID, SourcePath: "/evidence/export", SourceType: "folder"})
	assert.Equal(t, "/evidence/export", s.SourcePath)

	sources := call[[]backend.CaseSource](t, b, backend.CmdLoadSources, backend.LoadSourcesArgs{CaseID: c.ID})
	require.Len(t, sources, 1)

	// Same path twice stays unique per case.
	call[backend.CaseSource](t, b, backend.CmdAddSource, backend.AddSourceArgs{CaseID: c.ID, SourcePath: "/evidence/export"})
	sources = call[[]backend.CaseSource](t, b, backend.CmdLoadSources, backend.LoadSourcesArgs{CaseID: c.ID})
	assert.Len(t, sources, 1)
}
