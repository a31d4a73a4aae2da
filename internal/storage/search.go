/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes the in-app search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// ProjectID narrows to one project; empty searches all of them. Languages
// restricts to file language tags like html, js, json.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	ProjectID string
	Languages []string
	Limit     int
	Offset    int
}

// SearchResult represents a single match row.
// Snippet is a highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	DocID     int64
	ProjectID string
	Path      string
	Language  string
	Snippet   string
}

// Search performs full-text search over indexed file contents with optional
// filters. When q.Text is empty, it falls back to a non-FTS scan over
// documents with filters applied.
func Search(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("data root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	// Build dynamic SQL
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT d.doc_id, d.project_id, d.path, d.language, snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.project_id, d.path, d.language, ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.ProjectID); s != "" {
		sb.WriteString(" AND d.project_id = ?\n")
		args = append(args, s)
	}
	if len(q.Languages) > 0 {
		sb.WriteString(" AND d.language IN (" + placeholders(len(q.Languages)) + ")\n")
		for _, lang := range q.Languages {
			args = append(args, strings.ToLower(strings.TrimSpace(lang)))
		}
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.project_id, d.path\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.ProjectID, &r.Path, &r.Language, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
