// Package store provides PostgreSQL-backed access to the profile and career
// path catalog collections.
package store

import (
	"context"

	"careermatch/internal/types"
)

// ProfileStore is the external profile collaborator. Find reports a distinct
// not-found condition so callers can re-prompt for onboarding instead of
// retrying.
type ProfileStore interface {
	Find(ctx context.Context, externalID string) (*types.ProfileRecord, error)
	SaveNormalized(ctx context.Context, externalID string, profile types.UserProfile) error
	MarkAssessmentCompleted(ctx context.Context, externalID string) error
}

// CatalogStore is the external catalog collaborator. ListAll must behave
// identically whether the backing store holds 10 items or 10,000; pagination
// is handled transparently.
type CatalogStore interface {
	ListAll(ctx context.Context, limitHint int) ([]types.CatalogItem, error)
}
