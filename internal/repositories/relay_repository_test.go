package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseRepository(t *testing.T, repo RelayRepository) {
	t.Helper()
	ctx := context.Background()

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	registrations := []onion.RelayDescriptor{
		{Identity: 3, PublicKey: "key-3"},
		{Identity: 1, PublicKey: "key-1"},
		{Identity: 3, PublicKey: "key-3-again"},
	}
	for _, r := range registrations {
		require.NoError(t, repo.Append(ctx, r))
	}

	listed, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, registrations, listed, "append-only, insertion order, no dedup")
}

func TestMemoryRelayRepository(t *testing.T) {
	repo := NewMemoryRelayRepository()
	defer repo.Close()
	exerciseRepository(t, repo)
}

func TestBoltRelayRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	repo, err := OpenBoltRelayRepository(path)
	require.NoError(t, err)
	exerciseRepository(t, repo)
	require.NoError(t, repo.Close())

	reopened, err := OpenBoltRelayRepository(path)
	require.NoError(t, err)
	defer reopened.Close()
	listed, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 3, "registrations survive a restart")
}

func TestPostgresRelayRepository(t *testing.T) {
	dsn := os.Getenv("ONION_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ONION_TEST_POSTGRES_DSN not set")
	}
	repo, err := OpenPostgresRelayRepository(dsn)
	require.NoError(t, err)
	defer repo.Close()
	_, err = repo.db.Exec(`TRUNCATE relays`)
	require.NoError(t, err)
	exerciseRepository(t, repo)
}

func TestOpenRelayRepository(t *testing.T) {
	repo, err := OpenRelayRepository(config.Registry{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryRelayRepository{}, repo)

	repo, err = OpenRelayRepository(config.Registry{Backend: "bolt", Path: filepath.Join(t.TempDir(), "r.db")})
	require.NoError(t, err)
	assert.IsType(t, &BoltRelayRepository{}, repo)
	require.NoError(t, repo.Close())

	_, err = OpenRelayRepository(config.Registry{Backend: "postgres"})
	assert.Error(t, err)

	_, err = OpenRelayRepository(config.Registry{Backend: "etcd"})
	assert.Error(t, err)
}
