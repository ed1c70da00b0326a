package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteBuild inserts a build and its artifacts in one transaction and
// returns the assigned seq. result is stored as JSON.
//
// Idempotent: writing the same build ID twice keeps the first record and
// returns its seq.
func (s *Store) WriteBuild(ctx context.Context, rec BuildRecord, result any) (int64, error) {
	body, err := marshalBody(result)
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	switch err := tx.QueryRowContext(ctx, `SELECT seq FROM builds WHERE id = ?`, rec.ID).Scan(&existing); {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write build: %w", err)
	}

	seq, err := nextSeq(ctx, tx, "builds")
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds (id, seq, source_dir, status, result)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, seq, rec.SourceDir, rec.Status, body)
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}

	for _, a := range rec.Artifacts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artifacts (build_id, tag, path, size, digest)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, string(a.Tag), a.Path, a.Size, a.Digest)
		if err != nil {
			return 0, fmt.Errorf("write build: artifact %s: %w", a.Tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write build: commit: %w", err)
	}
	return seq, nil
}

// WriteReport inserts a report and returns its seq. body is stored as JSON.
func (s *Store) WriteReport(ctx context.Context, rec ReportRecord, body any) (int64, error) {
	if _, ok := ParseReportKind(string(rec.Kind)); !ok || rec.Kind == "" {
		return 0, fmt.Errorf("write report: invalid kind %q", rec.Kind)
	}
	text, err := marshalBody(body)
	if err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write report: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "reports")
	if err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, seq, kind, tag, digest, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, seq, string(rec.Kind), string(rec.Tag), rec.Digest, text)
	if err != nil {
		return 0, fmt.Errorf("write report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write report: commit: %w", err)
	}
	return seq, nil
}
