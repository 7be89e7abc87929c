package implementation

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"edulycee-client/internal/model"
	"edulycee-client/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

func init() {
	gob.Register(model.Identity{})
}

// FileCredentialRepository keeps one identity per profile in a go-cache snapshot
// written to disk on every change.
type FileCredentialRepository struct {
	mu      sync.Mutex
	path    string
	profile string
	cache   *cache.Cache
	loaded  bool
}

var _ contract.CredentialRepository = (*FileCredentialRepository)(nil)

func NewFileCredentialRepository(path, profile string) *FileCredentialRepository {
	if profile == "" {
		profile = "default"
	}
	return &FileCredentialRepository{
		path:    path,
		profile: profile,
		cache:   cache.New(cache.NoExpiration, 0),
	}
}

func (r *FileCredentialRepository) ensureLoaded() error {
	if r.loaded {
		return nil
	}
	if err := r.cache.LoadFile(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load credential file %s: %w", r.path, err)
	}
	r.loaded = true
	return nil
}

func (r *FileCredentialRepository) Load(ctx context.Context) (*model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	x, found := r.cache.Get(r.profile)
	if !found {
		return nil, nil
	}
	identity, ok := x.(model.Identity)
	if !ok {
		return nil, fmt.Errorf("credential file %s: unexpected record %T", r.path, x)
	}
	return &identity, nil
}

func (r *FileCredentialRepository) Save(ctx context.Context, identity model.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return err
	}
	previous, hadPrevious := r.cache.Get(r.profile)
	r.cache.Set(r.profile, identity, cache.NoExpiration)
	if err := r.flush(); err != nil {
		if hadPrevious {
			r.cache.Set(r.profile, previous, cache.NoExpiration)
		} else {
			r.cache.Delete(r.profile)
		}
		return err
	}
	return nil
}

func (r *FileCredentialRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return err
	}
	r.cache.Delete(r.profile)
	return r.flush()
}

func (r *FileCredentialRepository) flush() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential dir: %w", err)
		}
	}
	if err := r.cache.SaveFile(r.path); err != nil {
		return fmt.Errorf("write credential file %s: %w", r.path, err)
	}
	return os.Chmod(r.path, 0o600)
}
