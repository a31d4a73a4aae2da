/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPG opens a Postgres connection for the shared-index deployment.
// The embedded SQLite index stays authoritative for local work; Postgres is
// the multi-seat mirror and must answer searches with the same row shape.
func OpenPG(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// EnsurePGSchema creates the mirrored documents table when missing.
func EnsurePGSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id         BIGSERIAL PRIMARY KEY,
			project_id TEXT NOT NULL,
			path       TEXT NOT NULL,
			language   TEXT NOT NULL,
			modified   BIGINT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			search_vector tsvector GENERATED ALWAYS AS (to_tsvector('simple', content)) STORED,
			UNIQUE(project_id, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_search ON documents USING GIN (search_vector);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure pg schema: %w", err)
		}
	}
	return nil
}

// SearchPG executes a search over the Postgres documents table using
// tsvector and filters and returns results mapped to SearchResult to ease
// parity checks against the embedded index.
func SearchPG(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		p := place(q.Text)
		b.WriteString("SELECT d.id AS doc_id, d.project_id, d.path, d.language, ")
		b.WriteString("COALESCE(ts_headline('simple', d.content, plainto_tsquery('simple', " + p + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM documents d WHERE d.search_vector @@ plainto_tsquery('simple', " + p + ") ")
	} else {
		b.WriteString("SELECT d.id AS doc_id, d.project_id, d.path, d.language, '' AS snippet ")
		b.WriteString("FROM documents d WHERE TRUE ")
	}
	if s := strings.TrimSpace(q.ProjectID); s != "" {
		b.WriteString(" AND d.project_id = " + place(s) + " ")
	}
	if len(q.Languages) > 0 {
		langs := make([]string, 0, len(q.Languages))
		for _, lang := range q.Languages {
			langs = append(langs, strings.ToLower(strings.TrimSpace(lang)))
		}
		b.WriteString(" AND d.language = ANY (" + place(langs) + ") ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.project_id, d.path ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pg search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.DocID, &r.ProjectID, &r.Path, &r.Language, &r.Snippet); err != nil {
			return nil, fmt.Errorf("pg scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertPGDocument mirrors one indexed file row into Postgres.
func UpsertPGDocument(ctx context.Context, db *sql.DB, projectID, path, language string, modified int64, content string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO documents (project_id, path, language, modified, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, path)
		DO UPDATE SET language = EXCLUDED.language, modified = EXCLUDED.modified, content = EXCLUDED.content`,
		projectID, path, language, modified, content)
	if err != nil {
		return fmt.Errorf("upsert pg document %s: %w", path, err)
	}
	return nil
}
