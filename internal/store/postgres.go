package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/types"
)

// Expected schema:
//
//	CREATE TABLE profiles (
//	    external_id          TEXT PRIMARY KEY,
//	    email                TEXT NOT NULL DEFAULT '',
//	    display_name         TEXT NOT NULL DEFAULT '',
//	    profile              JSONB NOT NULL DEFAULT '{}',
//	    assessment_completed BOOLEAN NOT NULL DEFAULT FALSE,
//	    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE career_paths (
//	    id       TEXT PRIMARY KEY,
//	    position SERIAL,
//	    doc      JSONB NOT NULL
//	);
//
// Both collections are document-shaped: the matching-relevant payload lives in
// a JSONB column and is decoded into the domain types here.

// DB wraps a pgx connection pool shared by the repositories.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies connectivity.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Invalid database URL", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to create connection pool", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Database ping failed", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases the connection pool.
func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
	}
}

// Healthy reports whether the pool can reach the database.
func (db *DB) Healthy(ctx context.Context) bool {
	if db == nil || db.pool == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.pool.Ping(pingCtx) == nil
}

// ProfilesRepo implements ProfileStore on the profiles table.
type ProfilesRepo struct {
	db *DB
}

var _ ProfileStore = (*ProfilesRepo)(nil)

// NewProfilesRepo creates a ProfileStore backed by db.
func NewProfilesRepo(db *DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

// Find loads a profile record by external id. A missing record is a distinct
// not-found condition, not a store failure.
func (r *ProfilesRepo) Find(ctx context.Context, externalID string) (*types.ProfileRecord, error) {
	const query = `
		SELECT external_id, email, display_name, profile, assessment_completed
		FROM profiles
		WHERE external_id = $1`

	var (
		record     types.ProfileRecord
		profileDoc []byte
	)
	err := r.db.pool.QueryRow(ctx, query, externalID).Scan(
		&record.ExternalID,
		&record.Email,
		&record.DisplayName,
		&profileDoc,
		&record.AssessmentCompleted,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.NewNotFoundError(errors.ErrCodeProfileNotFound,
				fmt.Sprintf("Profile %q not found", externalID), nil)
		}
		return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to load profile", err)
	}

	if len(profileDoc) > 0 {
		if err := json.Unmarshal(profileDoc, &record.Profile); err != nil {
			return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
				fmt.Sprintf("Profile %q holds a malformed document", externalID), err)
		}
	}

	return &record, nil
}

// SaveNormalized writes the normalized profile document back to the record.
func (r *ProfilesRepo) SaveNormalized(ctx context.Context, externalID string, profile types.UserProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternal,
			"Failed to serialize normalized profile", err)
	}

	const query = `
		UPDATE profiles
		SET profile = $2, updated_at = NOW()
		WHERE external_id = $1`

	tag, err := r.db.pool.Exec(ctx, query, externalID, doc)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to save normalized profile", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeProfileNotFound,
			fmt.Sprintf("Profile %q not found", externalID), nil)
	}
	return nil
}

// MarkAssessmentCompleted flips the assessment flag. Idempotent.
func (r *ProfilesRepo) MarkAssessmentCompleted(ctx context.Context, externalID string) error {
	const query = `
		UPDATE profiles
		SET assessment_completed = TRUE, updated_at = NOW()
		WHERE external_id = $1`

	tag, err := r.db.pool.Exec(ctx, query, externalID)
	if err != nil {
		return errors.NewStoreError(errors.ErrCodeStoreFailed,
			"Failed to mark assessment completed", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeProfileNotFound,
			fmt.Sprintf("Profile %q not found", externalID), nil)
	}
	return nil
}

// CatalogRepo implements CatalogStore on the career_paths table.
type CatalogRepo struct {
	db       *DB
	pageSize int
}

var _ CatalogStore = (*CatalogRepo)(nil)

// NewCatalogRepo creates a CatalogStore backed by db. pageSize bounds each
// round trip; values <= 0 fall back to a sane default.
func NewCatalogRepo(db *DB, pageSize int) *CatalogRepo {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &CatalogRepo{db: db, pageSize: pageSize}
}

// ListAll pages through the whole catalog in stable insertion order. limitHint
// caps the result when positive; callers that need the full catalog pass 0.
func (r *CatalogRepo) ListAll(ctx context.Context, limitHint int) ([]types.CatalogItem, error) {
	const query = `
		SELECT id, doc
		FROM career_paths
		ORDER BY position
		LIMIT $1 OFFSET $2`

	items := make([]types.CatalogItem, 0, r.pageSize)
	for offset := 0; ; offset += r.pageSize {
		rows, err := r.db.pool.Query(ctx, query, r.pageSize, offset)
		if err != nil {
			return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
				"Failed to query catalog page", err)
		}

		pageCount := 0
		for rows.Next() {
			var (
				id  string
				doc []byte
			)
			if err := rows.Scan(&id, &doc); err != nil {
				rows.Close()
				return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
					"Failed to scan catalog row", err)
			}

			var item types.CatalogItem
			if err := json.Unmarshal(doc, &item); err != nil {
				rows.Close()
				return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
					fmt.Sprintf("Catalog item %q holds a malformed document", id), err)
			}
			if item.ID == "" {
				item.ID = id
			}
			items = append(items, item)
			pageCount++

			if limitHint > 0 && len(items) >= limitHint {
				rows.Close()
				return items, nil
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, errors.NewStoreError(errors.ErrCodeStoreFailed,
				"Catalog page iteration failed", err)
		}

		// A short page means the table is exhausted.
		if pageCount < r.pageSize {
			return items, nil
		}
	}
}
