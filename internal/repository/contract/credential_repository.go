package contract

import (
	"context"

	"edulycee-client/internal/model"
)

// CredentialRepository persists the four identity fields as a single record, so a
// write is all-or-nothing.
type CredentialRepository interface {
	// Load returns nil when nothing is persisted.
	Load(ctx context.Context) (*model.Identity, error)
	Save(ctx context.Context, identity model.Identity) error
	Clear(ctx context.Context) error
}
