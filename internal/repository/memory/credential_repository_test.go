package memory

import (
	"context"
	"sync"
	"testing"

	"edulycee-client/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	identity := model.Identity{Token: "t", UserId: 4, Username: "amina", Email: "amina@example.com"}
	require.NoError(t, repo.Save(ctx, identity))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, identity, *got)

	require.NoError(t, repo.Clear(ctx))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepositoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()
	identity := model.Identity{Token: "t", UserId: 4}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Save(ctx, identity))
		}()
		go func() {
			defer wg.Done()
			got, err := repo.Load(ctx)
			assert.NoError(t, err)
			if got != nil {
				assert.Equal(t, identity, *got)
			}
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Clear(ctx))
		}()
	}
	wg.Wait()
}
