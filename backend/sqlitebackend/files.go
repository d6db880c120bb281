package sqlitebackend

import (
	"context"
	"database/sql"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/scanner"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

func (b *Backend) createCase(ctx context.Context, args backend.CreateCaseArgs) (backend.Case, error) {
	if args.Name == "" {
		return backend.Case{}, errors.Wrap(backend.ErrInvalidArgs, "case name is required")
	}
	now := b.now()
	c := backend.Case{
		ID:           uuid.NewString(),
		Name:         args.Name,
		CaseNumber:   args.CaseNumber,
		Department:   args.Department,
		Client:       args.Client,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastOpenedAt: now,
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cases (id, name, case_number, department, client, created_at, updated_at, last_opened_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.CaseNumber, c.Department, c.Client, c.CreatedAt, c.UpdatedAt, c.LastOpenedAt)
	if err != nil {
		return backend.Case{}, errors.Wrap(err, "inserting case")
	}
	b.log.Info("created case %s (%s)", c.Name, c.ID)
	return c, nil
}

func (b *Backend) caseExists(ctx context.Context, caseID string) error {
	var one int
	err := b.db.QueryRowContext(ctx, `SELECT 1 FROM cases WHERE id = ?`, caseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(backend.ErrNotFound, "case %s", caseID)
	}
	return errors.Wrap(err, "looking up case")
}

const fileColumns = `id, case_id, file_name, COALESCE(folder_path,''), absolute_path,
	COALESCE(file_hash,''), COALESCE(file_type,''), COALESCE(file_size,0),
	COALESCE(created_at,0), COALESCE(modified_at,0), status, COALESCE(source_directory,'')`

func scanFile(rows *sql.Rows) (backend.File, error) {
	var f backend.File
	err := rows.Scan(&f.ID, &f.CaseID, &f.FileName, &f.FolderPath, &f.AbsolutePath,
		&f.FileHash, &f.FileType, &f.FileSize, &f.CreatedAt, &f.ModifiedAt,
		&f.Status, &f.SourceDirectory)
	return f, err
}

func (b *Backend) loadFiles(ctx context.Context, args backend.LoadFilesArgs) ([]backend.File, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE case_id = ? AND deleted = 0
		 ORDER BY folder_path, file_name`, args.CaseID)
	if err != nil {
		return nil, errors.Wrap(err, "loading files")
	}
	defer rows.Close()

	files := []backend.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning file row")
		}
		files = append(files, f)
	}
	return files, errors.Wrap(rows.Err(), "loading files")
}

func (b *Backend) fileCounts(ctx context.Context, args backend.GetFileCountsArgs) (backend.FileCounts, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return backend.FileCounts{}, err
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM files
		 WHERE case_id = ? AND deleted = 0
		 GROUP BY status`, args.CaseID)
	if err != nil {
		return backend.FileCounts{}, errors.Wrap(err, "counting files")
	}
	defer rows.Close()

	counts := backend.FileCounts{ByStatus: map[string]int64{}}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return backend.FileCounts{}, errors.Wrap(err, "scanning count row")
		}
		counts.ByStatus[status] = n
		counts.Total += n
	}
	return counts, errors.Wrap(rows.Err(), "counting files")
}

func (b *Backend) duplicateGroups(ctx context.Context, args backend.LoadDuplicateGroupsArgs) ([]backend.DuplicateGroup, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT file_hash, id FROM files
		 WHERE case_id = ? AND deleted = 0 AND file_hash IS NOT NULL AND file_hash != ''
		 ORDER BY file_hash, folder_path, file_name`, args.CaseID)
	if err != nil {
		return nil, errors.Wrap(err, "loading duplicate groups")
	}
	defer rows.Close()

	groups := []backend.DuplicateGroup{}
	var current *backend.DuplicateGroup
	for rows.Next() {
		var hash, id string
		if err := rows.Scan(&hash, &id); err != nil {
			return nil, errors.Wrap(err, "scanning duplicate row")
		}
		if current == nil || current.FileHash != hash {
			groups = append(groups, backend.DuplicateGroup{FileHash: hash})
			current = &groups[len(groups)-1]
		}
		current.FileIDs = append(current.FileIDs, id)
		current.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "loading duplicate groups")
	}

	// Only sets of two or more files are duplicates.
	out := groups[:0]
	for _, g := range groups {
		if g.Count > 1 {
			out = append(out, g)
		}
	}
	return out, nil
}

func (b *Backend) ingestFiles(ctx context.Context, args backend.IngestFilesArgs) (backend.IngestResult, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return backend.IngestResult{}, err
	}
	scanned, err := scanner.Scan(ctx, args.SourcePath)
	if err != nil {
		return backend.IngestResult{}, err
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.IngestResult{}, errors.Wrap(err, "beginning ingest")
	}
	defer tx.Rollback()

	now := b.now()
	var result backend.IngestResult
	for _, f := range scanned {
		inserted, err := b.insertScannedFile(ctx, tx, args.CaseID, args.SourcePath, f, now)
		if err != nil {
			return backend.IngestResult{}, err
		}
		if inserted {
			result.Ingested++
		} else {
			result.Skipped++
		}
	}
	if err := registerSource(ctx, tx, args.CaseID, args.SourcePath, now); err != nil {
		return backend.IngestResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return backend.IngestResult{}, errors.Wrap(err, "committing ingest")
	}
	b.log.Info("ingested %d files from %s (%d already present)", result.Ingested, args.SourcePath, result.Skipped)
	return result, nil
}

// insertScannedFile inserts one scanned file unless its absolute path is
// already tracked. Returns whether a new row was created.
func (b *Backend) insertScannedFile(ctx context.Context, tx *sql.Tx, caseID, sourcePath string, f scanner.FileInfo, now int64) (bool, error) {
	var existing string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM files WHERE absolute_path = ?`, f.AbsolutePath).Scan(&existing)
	if err == nil {
		// Known file: revive it if a previous sync soft-deleted it.
		_, err = tx.ExecContext(ctx, `UPDATE files SET deleted = 0 WHERE id = ?`, existing)
		return false, errors.Wrap(err, "reviving file")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, errors.Wrap(err, "checking existing file")
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (id, case_id, file_name, folder_path, absolute_path, file_hash,
			file_type, file_size, created_at, modified_at, status, source_directory, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id, caseID, f.FileName, f.FolderPath, f.AbsolutePath, f.Hash,
		f.FileType, f.Size, now, f.ModifiedAt.Unix(), backend.StatusUnreviewed, sourcePath)
	if err != nil {
		return false, errors.Wrapf(err, "inserting %s", f.AbsolutePath)
	}

	meta, err := msgpack.Marshal(scanner.DeriveMeta(f))
	if err != nil {
		return false, errors.Wrap(err, "encoding metadata")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO file_metadata (file_id, extracted, last_scanned_at) VALUES (?, ?, ?)
		 ON CONFLICT(file_id) DO UPDATE SET extracted = excluded.extracted, last_scanned_at = excluded.last_scanned_at`,
		id, meta, now)
	return true, errors.Wrap(err, "storing metadata")
}

func registerSource(ctx context.Context, tx *sql.Tx, caseID, sourcePath string, now int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO case_sources (id, case_id, source_path, source_type, added_at)
		 VALUES (?, ?, ?, 'folder', ?)
		 ON CONFLICT(case_id, source_path) DO NOTHING`,
		uuid.NewString(), caseID, sourcePath, now)
	return errors.Wrap(err, "registering source")
}

func (b *Backend) syncCaseFolder(ctx context.Context, args backend.SyncCaseFolderArgs) (backend.SyncResult, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return backend.SyncResult{}, err
	}
	scanned, err := scanner.Scan(ctx, args.SourcePath)
	if err != nil {
		return backend.SyncResult{}, err
	}
	onDisk := make(map[string]bool, len(scanned))
	for _, f := range scanned {
		onDisk[f.AbsolutePath] = true
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.SyncResult{}, errors.Wrap(err, "beginning sync")
	}
	defer tx.Rollback()

	now := b.now()
	var result backend.SyncResult

	// New files on disk.
	for _, f := range scanned {
		inserted, err := b.insertScannedFile(ctx, tx, args.CaseID, args.SourcePath, f, now)
		if err != nil {
			return backend.SyncResult{}, err
		}
		if inserted {
			result.Added++
		}
	}

	// Tracked files from this source that vanished from disk. Files with
	// notes or review progress are kept; the rest are soft-deleted.
	rows, err := tx.QueryContext(ctx,
		`SELECT f.id, f.absolute_path, f.status,
			(SELECT COUNT(*) FROM notes n WHERE n.file_id = f.id) AS note_count
		 FROM files f
		 WHERE f.case_id = ? AND f.source_directory = ? AND f.deleted = 0`,
		args.CaseID, args.SourcePath)
	if err != nil {
		return backend.SyncResult{}, errors.Wrap(err, "listing tracked files")
	}
	type tracked struct {
		id        string
		protected bool
	}
	var missing []tracked
	for rows.Next() {
		var id, path, status string
		var noteCount int
		if err := rows.Scan(&id, &path, &status, &noteCount); err != nil {
			rows.Close()
			return backend.SyncResult{}, errors.Wrap(err, "scanning tracked file")
		}
		if !onDisk[path] {
			missing = append(missing, tracked{id: id, protected: noteCount > 0 || status != backend.StatusUnreviewed})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return backend.SyncResult{}, errors.Wrap(err, "listing tracked files")
	}

	for _, m := range missing {
		if m.protected {
			result.Kept++
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE files SET deleted = 1 WHERE id = ?`, m.id); err != nil {
			return backend.SyncResult{}, errors.Wrap(err, "removing missing file")
		}
		result.Removed++
	}

	if err := registerSource(ctx, tx, args.CaseID, args.SourcePath, now); err != nil {
		return backend.SyncResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return backend.SyncResult{}, errors.Wrap(err, "committing sync")
	}
	b.log.Info("synced %s: %d added, %d removed, %d kept", args.SourcePath, result.Added, result.Removed, result.Kept)
	return result, nil
}

func (b *Backend) deleteFiles(ctx context.Context, args backend.DeleteFilesArgs) (backend.DeleteResult, error) {
	if len(args.FileIDs) == 0 {
		return backend.DeleteResult{}, errors.Wrap(backend.ErrInvalidArgs, "no file ids")
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.DeleteResult{}, errors.Wrap(err, "beginning delete")
	}
	defer tx.Rollback()

	var result backend.DeleteResult
	for _, id := range args.FileIDs {
		var status string
		var noteCount int
		err := tx.QueryRowContext(ctx,
			`SELECT status, (SELECT COUNT(*) FROM notes n WHERE n.file_id = f.id)
			 FROM files f WHERE f.id = ? AND f.deleted = 0`, id).Scan(&status, &noteCount)
		if errors.Is(err, sql.ErrNoRows) {
			return backend.DeleteResult{}, errors.Wrapf(backend.ErrNotFound, "file %s", id)
		}
		if err != nil {
			return backend.DeleteResult{}, errors.Wrap(err, "checking file")
		}
		if noteCount > 0 || status == backend.StatusFinalized {
			result.Protected++
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE files SET deleted = 1 WHERE id = ?`, id); err != nil {
			return backend.DeleteResult{}, errors.Wrap(err, "deleting file")
		}
		result.Deleted++
	}
	if err := tx.Commit(); err != nil {
		return backend.DeleteResult{}, errors.Wrap(err, "committing delete")
	}
	return result, nil
}

func (b *Backend) updateFileStatus(ctx context.Context, args backend.UpdateFileStatusArgs) (backend.UpdateStatusResult, error) {
	if !backend.ValidStatus(args.Status) {
		return backend.UpdateStatusResult{}, errors.Wrapf(backend.ErrInvalidArgs, "status %q", args.Status)
	}
	if len(args.FileIDs) == 0 {
		return backend.UpdateStatusResult{}, errors.Wrap(backend.ErrInvalidArgs, "no file ids")
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return backend.UpdateStatusResult{}, errors.Wrap(err, "beginning status update")
	}
	defer tx.Rollback()

	var result backend.UpdateStatusResult
	for _, id := range args.FileIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE files SET status = ? WHERE id = ? AND deleted = 0`, args.Status, id)
		if err != nil {
			return backend.UpdateStatusResult{}, errors.Wrap(err, "updating status")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return backend.UpdateStatusResult{}, errors.Wrap(err, "updating status")
		}
		if n == 0 {
			return backend.UpdateStatusResult{}, errors.Wrapf(backend.ErrNotFound, "file %s", id)
		}
		result.Updated += int(n)
	}
	return result, errors.Wrap(tx.Commit(), "committing status update")
}
