package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shiptrack.db")

	st, err := Open(ctx, path)
	require.NoError(t, err)

	_, ok, err := st.Get(ctx, "shiptrack_users")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Put(ctx, "shiptrack_users", []byte(`[]`)))
	require.NoError(t, st.Put(ctx, "shiptrack_users", []byte(`[{"id":"u1"}]`)))

	v, ok, err := st.Get(ctx, "shiptrack_users")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":"u1"}]`, string(v))

	require.NoError(t, st.Delete(ctx, "shiptrack_users"))
	_, ok, err = st.Get(ctx, "shiptrack_users")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, st.Close())
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shiptrack.db")

	st, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, "shiptrack_settings", []byte(`{"registrationEnabled":false}`)))
	require.NoError(t, st.Close())

	st, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	v, ok, err := st.Get(ctx, "shiptrack_settings")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"registrationEnabled":false}`, string(v))
}
