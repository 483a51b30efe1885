package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/Avi007-debug/chyrp-rebuild-clonefest/internal/init"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("token")
	require.NoError(t, err)
	assert.False(t, ok, "missing key should not be found")

	require.NoError(t, s.Set("token", "abc"))
	require.NoError(t, s.Set("theme", "dark"))
	require.NoError(t, s.Set("token", "def"))

	v, ok, err := s.Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Delete("token"))
	require.NoError(t, s.Delete("token"), "deleting a missing key is not an error")

	_, ok, err = s.Get("token")
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err = s.Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestMockStore(t *testing.T) {
	exerciseStore(t, NewMock())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s, err := NewFile(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	s.Close()

	_, _, err = s.Get("theme")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("token", "persisted"))
	s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unterminated"), 0o600))

	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("theme", "dark"))
	s.Close()

	s2, err := NewSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get("theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedis("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	require.NoError(t, s.Set("theme", "light"))
	assert.True(t, mr.Exists(redisKeyPrefix+"theme"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	s := NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	_, _, err = s.Get("token")
	assert.Error(t, err)
}

func TestNew_SelectsDriver(t *testing.T) {
	s, err := New(&config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MockStore{}, s)

	s, err = New(&config.Config{StoreDriver: "file", StorePath: filepath.Join(t.TempDir(), "s.yaml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(&config.Config{StoreDriver: "etcd"})
	assert.Error(t, err)
}

func TestMockStoreFail(t *testing.T) {
	var s Store = &MockStoreFail{}
	_, _, err := s.Get("token")
	assert.Error(t, err)
	assert.Error(t, s.Set("token", "x"))
	assert.Error(t, s.Delete("token"))
}
