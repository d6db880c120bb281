package sqlitebackend

import (
	"context"
	"database/sql"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

func (b *Backend) loadNotes(ctx context.Context, args backend.LoadNotesArgs) ([]backend.Note, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return nil, err
	}
	query := `SELECT id, case_id, COALESCE(file_id,''), content, pinned, created_at, updated_at
		 FROM notes WHERE case_id = ?`
	params := []any{args.CaseID}
	if args.FileID != "" {
		query += ` AND file_id = ?`
		params = append(params, args.FileID)
	}
	query += ` ORDER BY pinned DESC, updated_at DESC`

	rows, err := b.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(err, "loading notes")
	}
	defer rows.Close()

	notes := []backend.Note{}
	for rows.Next() {
		var n backend.Note
		if err := rows.Scan(&n.ID, &n.CaseID, &n.FileID, &n.Content, &n.Pinned, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning note row")
		}
		notes = append(notes, n)
	}
	return notes, errors.Wrap(rows.Err(), "loading notes")
}

func (b *Backend) noteCounts(ctx context.Context, args backend.GetNoteCountsArgs) ([]backend.NoteCount, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT COALESCE(file_id,''), COUNT(*) FROM notes
		 WHERE case_id = ?
		 GROUP BY file_id
		 ORDER BY 1`, args.CaseID)
	if err != nil {
		return nil, errors.Wrap(err, "counting notes")
	}
	defer rows.Close()

	counts := []backend.NoteCount{}
	for rows.Next() {
		var c backend.NoteCount
		if err := rows.Scan(&c.FileID, &c.Count); err != nil {
			return nil, errors.Wrap(err, "scanning note count")
		}
		counts = append(counts, c)
	}
	return counts, errors.Wrap(rows.Err(), "counting notes")
}

func (b *Backend) addNote(ctx context.Context, args backend.AddNoteArgs) (backend.Note, error) {
	if args.Content == "" {
		return backend.Note{}, errors.Wrap(backend.ErrInvalidArgs, "note content is required")
	}
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return backend.Note{}, err
	}
	now := b.now()
	n := backend.Note{
		ID:        uuid.NewString(),
		CaseID:    args.CaseID,
		FileID:    args.FileID,
		Content:   args.Content,
		Pinned:    args.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var fileID any
	if n.FileID != "" {
		fileID = n.FileID
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO notes (id, case_id, file_id, content, pinned, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.CaseID, fileID, n.Content, n.Pinned, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return backend.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (b *Backend) updateNote(ctx context.Context, args backend.UpdateNoteArgs) (backend.Note, error) {
	if args.Content == "" {
		return backend.Note{}, errors.Wrap(backend.ErrInvalidArgs, "note content is required")
	}
	now := b.now()
	var res sql.Result
	var err error
	if args.Pinned != nil {
		res, err = b.db.ExecContext(ctx,
			`UPDATE notes SET content = ?, pinned = ?, updated_at = ? WHERE id = ?`,
			args.Content, *args.Pinned, now, args.NoteID)
	} else {
		res, err = b.db.ExecContext(ctx,
			`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`,
			args.Content, now, args.NoteID)
	}
	if err != nil {
		return backend.Note{}, errors.Wrap(err, "updating note")
	}
	if n, err := res.RowsAffected(); err != nil {
		return backend.Note{}, errors.Wrap(err, "updating note")
	} else if n == 0 {
		return backend.Note{}, errors.Wrapf(backend.ErrNotFound, "note %s", args.NoteID)
	}

	var out backend.Note
	err = b.db.QueryRowContext(ctx,
		`SELECT id, case_id, COALESCE(file_id,''), content, pinned, created_at, updated_at
		 FROM notes WHERE id = ?`, args.NoteID).
		Scan(&out.ID, &out.CaseID, &out.FileID, &out.Content, &out.Pinned, &out.CreatedAt, &out.UpdatedAt)
	return out, errors.Wrap(err, "reloading note")
}

func (b *Backend) deleteNote(ctx context.Context, args backend.DeleteNoteArgs) (struct{}, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, args.NoteID)
	if err != nil {
		return struct{}{}, errors.Wrap(err, "deleting note")
	}
	if n, err := res.RowsAffected(); err != nil {
		return struct{}{}, errors.Wrap(err, "deleting note")
	} else if n == 0 {
		return struct{}{}, errors.Wrapf(backend.ErrNotFound, "note %s", args.NoteID)
	}
	return struct{}{}, nil
}
