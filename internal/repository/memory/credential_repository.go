package memory

import (
	"context"

	"edulycee-client/internal/model"
	"edulycee-client/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

const credentialKey = "credential"

// CredentialRepository keeps the identity for the lifetime of the process.
// go-cache does its own locking.
type CredentialRepository struct {
	cache *cache.Cache
}

var _ contract.CredentialRepository = (*CredentialRepository)(nil)

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *CredentialRepository) Load(ctx context.Context) (*model.Identity, error) {
	if x, found := r.cache.Get(credentialKey); found {
		identity := x.(model.Identity)
		return &identity, nil
	}
	return nil, nil
}

func (r *CredentialRepository) Save(ctx context.Context, identity model.Identity) error {
	r.cache.Set(credentialKey, identity, cache.NoExpiration)
	return nil
}

func (r *CredentialRepository) Clear(ctx context.Context) error {
	r.cache.Delete(credentialKey)
	return nil
}
