package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpenDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := store.Put(ctx, "cases/c1/f1/contrato.txt", "text/plain", strings.NewReader("clausula"))
	require.NoError(t, err)
	assert.Equal(t, "cases/c1/f1/contrato.txt", obj.Key)

	rc, err := store.Open(ctx, obj)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "clausula", string(data))

	require.NoError(t, store.Delete(ctx, obj))
	require.NoError(t, store.Delete(ctx, obj))
	_, err = store.Open(ctx, obj)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_KeysStayInRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	p, err := store.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))

	_, err = store.path("  ")
	assert.Error(t, err)
}
