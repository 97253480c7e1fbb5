package filestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/edusight-backend/internal/platform/logger"
)

func TestLocalRoundTrip(t *testing.T) {
	st, err := NewLocal(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	key := UploadKey("s1", "u1", "../report card.pdf")
	assert.Equal(t, "uploads/s1/u1/report card.pdf", key)

	require.NoError(t, st.Put(ctx, key, []byte("%PDF"), "application/pdf"))
	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))

	require.NoError(t, st.Delete(ctx, key))
	_, err = st.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, st.Delete(ctx, key))
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	st, err := NewLocal(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	err = st.Put(context.Background(), "../../etc/passwd", []byte("x"), "")
	assert.Error(t, err)
}
