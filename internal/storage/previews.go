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
	"os"
	"strconv"
	"time"
)

// PreviewKind is a type discriminator for previews table rows.
// - doc: the composed sandbox document (HTML) for a screen at one version
// - thumb: raster thumbnail (PNG) for a screen or the whole canvas
const (
	PreviewKindDoc   = "doc"
	PreviewKindThumb = "thumb"
)

// EnsurePreviews guarantees the previews cache table and its indexes exist.
// It is safe to call multiple times.
func EnsurePreviews(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS previews (
		id           INTEGER PRIMARY KEY,
		project_id   TEXT    NOT NULL,
		screen       TEXT    NOT NULL,
		kind         TEXT    NOT NULL DEFAULT 'doc',
		version      INTEGER NOT NULL DEFAULT 0,
		blob         BLOB,
		size         INTEGER NOT NULL DEFAULT 0,
		updated_at   TEXT    NOT NULL,
		last_access  TEXT
	);`); err != nil {
		return fmt.Errorf("ensure previews table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(project_id, screen, kind, version)`); err != nil {
		return fmt.Errorf("create variant index: %w", err)
	}
	// LRU eviction scans by access time
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access)`)
	return nil
}

// GetPreview returns the cached blob for one screen variant and updates
// last_access. A nil result with nil error means a cache miss.
func GetPreview(ctx context.Context, db *sql.DB, projectID, screen, kind string, version int) ([]byte, error) {
	if err := EnsurePreviews(ctx, db); err != nil {
		return nil, err
	}
	var blob []byte
	err := db.QueryRowContext(ctx,
		`SELECT blob FROM previews WHERE project_id=? AND screen=? AND kind=? AND version=?`,
		projectID, screen, kind, version).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = db.ExecContext(ctx,
		`UPDATE previews SET last_access=? WHERE project_id=? AND screen=? AND kind=? AND version=?`,
		now, projectID, screen, kind, version)
	return blob, nil
}

// PutPreview upserts a preview blob, drops the screen's older versions, and
// enforces the cache size cap via LRU eviction.
func PutPreview(ctx context.Context, db *sql.DB, projectID, screen, kind string, version int, blob []byte) error {
	if err := EnsurePreviews(ctx, db); err != nil {
		return err
	}
	if kind != PreviewKindDoc && kind != PreviewKindThumb {
		return fmt.Errorf("invalid kind: %s", kind)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `INSERT INTO previews(project_id,screen,kind,version,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(project_id,screen,kind,version) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		projectID, screen, kind, version, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	// A screen only ever renders at the committed version; stale variants
	// are dead weight.
	_, _ = db.ExecContext(ctx,
		`DELETE FROM previews WHERE project_id=? AND screen=? AND kind=? AND version<?`,
		projectID, screen, kind, version)
	if capBytes := MaxPreviewsBytesFromEnv(); capBytes > 0 {
		if err := EvictPreviewsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using the
// provided generator.
func GetOrCreatePreview(ctx context.Context, db *sql.DB, projectID, screen, kind string, version int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, db, projectID, screen, kind, version); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutPreview(ctx, db, projectID, screen, kind, version, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Oldest first; rows never read sort before everything else.
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	sqlBase := `DELETE FROM previews WHERE id IN (`
	for i := range toDelete {
		if i > 0 {
			sqlBase += ","
		}
		sqlBase += "?"
	}
	sqlBase += ")"
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		args[i] = v
	}
	if _, err := db.ExecContext(ctx, sqlBase, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size.
func TotalPreviewBytes(ctx context.Context, db *sql.DB) (int64, error) {
	if err := EnsurePreviews(ctx, db); err != nil {
		return 0, err
	}
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads STUDIO_PREVIEWS_MAX_BYTES, defaulting to 64MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	v := os.Getenv("STUDIO_PREVIEWS_MAX_BYTES")
	if v == "" {
		return 64 * 1024 * 1024
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 64 * 1024 * 1024
	}
	return n
}
