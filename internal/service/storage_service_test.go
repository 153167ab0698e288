package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"ttrac_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalObjectStore_PutAndRemove(t *testing.T) {
	root := t.TempDir()
	store := &LocalObjectStore{Root: root}
	ctx := context.Background()

	url, err := store.Put(ctx, "materials/1/202610/notes..txt", strings.NewReader("week 1"), 6, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/materials/1/202610/notes..txt", url)

	raw, err := os.ReadFile(filepath.Join(root, "materials", "1", "202610", "notes..txt"))
	require.NoError(t, err)
	assert.Equal(t, "week 1", string(raw))

	require.NoError(t, store.Remove(ctx, "materials/1/202610/notes..txt"))
	_, err = os.Stat(filepath.Join(root, "materials", "1", "202610", "notes..txt"))
	assert.True(t, os.IsNotExist(err))

	// 删除不存在的对象不报错
	assert.NoError(t, store.Remove(ctx, "materials/1/missing.pdf"))
}

func TestLocalObjectStore_StaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "uploads")
	store := &LocalObjectStore{Root: root}
	ctx := context.Background()

	_, err := store.Put(ctx, "../../escape.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Put(ctx, "../", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}

func TestNewStorageService_FallsBackToLocal(t *testing.T) {
	for _, kind := range []string{"oss", "minio", "local"} {
		dir := t.TempDir()
		svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: kind, LocalPath: dir}})
		local, ok := svc.Store.(*LocalObjectStore)
		require.True(t, ok, kind)
		assert.Equal(t, dir, local.Root)
	}
}
