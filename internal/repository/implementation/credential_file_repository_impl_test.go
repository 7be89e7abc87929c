package implementation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"edulycee-client/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialRepositorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.gob")

	first := NewFileCredentialRepository(path, "default")
	got, err := first.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	identity := model.Identity{Token: "abc", UserId: 12, Username: "yanis", Email: "yanis@example.com"}
	require.NoError(t, first.Save(ctx, identity))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := NewFileCredentialRepository(path, "default")
	got, err = second.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, identity, *got)

	require.NoError(t, second.Clear(ctx))

	third := NewFileCredentialRepository(path, "default")
	got, err = third.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileCredentialRepositoryProfilesAreIndependent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.gob")

	require.NoError(t, NewFileCredentialRepository(path, "alice").Save(ctx, model.Identity{Token: "a", UserId: 1}))

	got, err := NewFileCredentialRepository(path, "bob").Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = NewFileCredentialRepository(path, "alice").Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Token)
}

func TestFileCredentialRepositoryRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0o600))

	_, err := NewFileCredentialRepository(path, "default").Load(context.Background())
	assert.Error(t, err)
}
