package fsblob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/store"
)

func TestStore_UploadDownloadDelete(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, st.Upload(ctx, "smart-upload/item1/parts/flute.pdf", []byte("pdf-bytes"), "application/pdf"))

	got, err := st.Download(ctx, "smart-upload/item1/parts/flute.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), got)

	require.NoError(t, st.Delete(ctx, "smart-upload/item1/parts/flute.pdf"))
	_, err = st.Download(ctx, "smart-upload/item1/parts/flute.pdf")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_DownloadMissingKeyReturnsNotFound(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = st.Download(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	err = st.Upload(context.Background(), "../../etc/passwd", []byte("x"), "")
	assert.Error(t, err)
}

func TestStore_DeleteMissingKeyIsNoop(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, st.Delete(context.Background(), "never-written"))
}
