/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores the ephemeral index data under the data root.
	IndexDirName  = ".studio"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 1
)

// IndexPath returns the full path to the embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures the SQLite index exists at .studio/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables
// exist. The returned *sql.DB is ready for use; callers close it when done.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("data root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .studio dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .studio dir: %w", err)
	}

	path := IndexPath(root)
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the documents, FTS and history tables if they do
// not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per project file; the id doubles as the FTS rowid.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id     INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			path       TEXT NOT NULL,
			language   TEXT NOT NULL,
			modified   INTEGER NOT NULL,
			UNIQUE(project_id, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(content);`,

		// Commit log mirror, prunable independently of the blob.
		`CREATE TABLE IF NOT EXISTS history (
			project_id  TEXT NOT NULL,
			version     INTEGER NOT NULL,
			entry_id    TEXT NOT NULL,
			ts          INTEGER NOT NULL,
			author      TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (project_id, version)
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// IndexProject replaces the document index and history mirror for one
// project. History entries are newest-first in memory; the row version is
// derived from their position relative to the current project version.
func IndexProject(ctx context.Context, db *sql.DB, p *domain.Project) error {
	if p == nil {
		return errors.New("nil project")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Drop the FTS rows through the doc ids before the documents go.
	rows, err := tx.QueryContext(ctx, `SELECT doc_id FROM documents WHERE project_id=?`, p.ID)
	if err != nil {
		return fmt.Errorf("list stale docs: %w", err)
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan stale doc: %w", err)
		}
		stale = append(stale, id)
	}
	rows.Close()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fts_documents WHERE rowid=?`, id); err != nil {
			return fmt.Errorf("delete fts row: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE project_id=?`, p.ID); err != nil {
		return fmt.Errorf("delete stale docs: %w", err)
	}

	for _, path := range sortedFilePaths(p) {
		f := p.Files[path]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (project_id, path, language, modified) VALUES (?, ?, ?, ?)`,
			p.ID, f.Path, f.Language, f.LastModified)
		if err != nil {
			return fmt.Errorf("insert doc %s: %w", f.Path, err)
		}
		docID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("doc id for %s: %w", f.Path, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fts_documents (rowid, content) VALUES (?, ?)`, docID, f.Content); err != nil {
			return fmt.Errorf("insert fts %s: %w", f.Path, err)
		}
	}

	for i, h := range p.History {
		v := p.Version - i
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO history (project_id, version, entry_id, ts, author, description) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, v, h.ID, h.Timestamp, string(h.Author), h.Description); err != nil {
			return fmt.Errorf("insert history v%d: %w", v, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

// PruneHistory keeps the newest keep rows of a project's history mirror and
// deletes the rest. keep <= 0 removes all rows.
func PruneHistory(ctx context.Context, db *sql.DB, projectID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM history WHERE project_id=? AND version NOT IN (
			SELECT version FROM history WHERE project_id=? ORDER BY version DESC LIMIT ?
		)`, projectID, projectID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// HistoryRow is one mirrored commit record.
type HistoryRow struct {
	Version     int
	EntryID     string
	Timestamp   int64
	Author      string
	Description string
}

// ProjectHistory lists the mirrored history newest-first.
func ProjectHistory(ctx context.Context, db *sql.DB, projectID string) ([]HistoryRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version, entry_id, ts, author, description FROM history WHERE project_id=? ORDER BY version DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		if err := rows.Scan(&r.Version, &r.EntryID, &r.Timestamp, &r.Author, &r.Description); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func sortedFilePaths(p *domain.Project) []string {
	out := make([]string, 0, len(p.Files))
	for path := range p.Files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
