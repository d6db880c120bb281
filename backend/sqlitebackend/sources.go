package sqlitebackend

import (
	"context"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

func (b *Backend) loadSources(ctx context.Context, args backend.LoadSourcesArgs) ([]backend.CaseSource, error) {
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, case_id, source_path, source_type, added_at
		 FROM case_sources WHERE case_id = ? ORDER BY added_at, source_path`, args.CaseID)
	if err != nil {
		return nil, errors.Wrap(err, "loading sources")
	}
	defer rows.Close()

	sources := []backend.CaseSource{}
	for rows.Next() {
		var s backend.CaseSource
		if err := rows.Scan(&s.ID, &s.CaseID, &s.SourcePath, &s.SourceType, &s.AddedAt); err != nil {
			return nil, errors.Wrap(err, "scanning source row")
		}
		sources = append(sources, s)
	}
	return sources, errors.Wrap(rows.Err(), "loading sources")
}

func (b *Backend) addSource(ctx context.Context, args backend.AddSourceArgs) (backend.CaseSource, error) {
	if args.SourcePath == "" {
		return backend.CaseSource{}, errors.Wrap(backend.ErrInvalidArgs, "source path is required")
	}
	if err := b.caseExists(ctx, args.CaseID); err != nil {
		return backend.CaseSource{}, err
	}
	sourceType := args.SourceType
	if sourceType == "" {
		sourceType = "folder"
	}
	s := backend.CaseSource{
		ID:         uuid.NewString(),
		CaseID:     args.CaseID,
		SourcePath: args.SourcePath,
		SourceType: sourceType,
		AddedAt:    b.now(),
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO case_sources (id, case_id, source_path, source_type, added_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(case_id, source_path) DO UPDATE SET source_type = excluded.source_type`,
		s.ID, s.CaseID, s.SourcePath, s.SourceType, s.AddedAt)
	if err != nil {
		return backend.CaseSource{}, errors.Wrap(err, "inserting source")
	}
	return s, nil
}
