package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/objscope/internal/artifact"
)

// DefaultLimit caps listings when the caller passes a non-positive limit.
const DefaultLimit = 20

// ListBuilds returns the most recent builds, newest first, with their
// artifacts.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source_dir, status, result
		FROM builds
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	builds := []BuildRecord{}
	for rows.Next() {
		var b BuildRecord
		var result string
		if err := rows.Scan(&b.ID, &b.Seq, &b.SourceDir, &b.Status, &result); err != nil {
			return nil, fmt.Errorf("list builds: scan: %w", err)
		}
		b.Result = []byte(result)
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	rows.Close()

	for i := range builds {
		arts, err := s.readArtifacts(ctx, builds[i].ID)
		if err != nil {
			return nil, err
		}
		builds[i].Artifacts = arts
	}
	return builds, nil
}

func (s *Store) readArtifacts(ctx context.Context, buildID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT build_id, tag, path, size, digest
		FROM artifacts
		WHERE build_id = ?
		ORDER BY tag ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("read artifacts: %w", err)
	}
	defer rows.Close()

	arts := []ArtifactRecord{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		arts = append(arts, a)
	}
	return arts, rows.Err()
}

// LatestArtifact returns the artifact for tag from the most recent build that
// published one. found is false if no build ever did.
func (s *Store) LatestArtifact(ctx context.Context, tag artifact.Tag) (rec ArtifactRecord, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.build_id, a.tag, a.path, a.size, a.digest
		FROM artifacts a
		JOIN builds b ON b.id = a.build_id
		WHERE a.tag = ?
		ORDER BY b.seq DESC
		LIMIT 1
	`, string(tag))
	rec, err = scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ArtifactRecord{}, false, nil
	}
	if err != nil {
		return ArtifactRecord{}, false, err
	}
	return rec, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (ArtifactRecord, error) {
	var a ArtifactRecord
	var tag string
	if err := row.Scan(&a.BuildID, &tag, &a.Path, &a.Size, &a.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan artifact: %w", err)
	}
	a.Tag = artifact.Tag(tag)
	return a, nil
}

// ListReports returns the most recent reports of kind (any kind if empty),
// newest first.
func (s *Store) ListReports(ctx context.Context, kind ReportKind, limit int) ([]ReportRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, tag, digest, body
		FROM reports
		WHERE ? = '' OR kind = ?
		ORDER BY seq DESC
		LIMIT ?
	`, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []ReportRecord{}
	for rows.Next() {
		var r ReportRecord
		var k, tag, body string
		if err := rows.Scan(&r.ID, &r.Seq, &k, &tag, &r.Digest, &body); err != nil {
			return nil, fmt.Errorf("list reports: scan: %w", err)
		}
		r.Kind = ReportKind(k)
		r.Tag = artifact.Tag(tag)
		r.Body = []byte(body)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
