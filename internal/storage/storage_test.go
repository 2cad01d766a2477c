package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/maxldruck/printcalc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteKeys(t *testing.T) {
	assert.Equal(t, "quotes/anna/", QuotePrefix("anna"))
	assert.Equal(t, "quotes/anna/3.pdf", QuoteKey("anna", 3, "pdf"))
	assert.Equal(t, "quotes/anna/3.xlsx", QuoteKey("anna", 3, ".xlsx"))
}

func TestOpenDisabled(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "s4"})
	assert.Error(t, err)
}

func TestMinioRequiresCredentials(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{
		Backend: "minio",
		Minio:   config.MinioConfig{Endpoint: "localhost:9000", Bucket: "quotes"},
	})
	assert.Error(t, err)
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Backend: "memory", Minio: config.MinioConfig{Bucket: "quotes"}})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "quotes", s.Bucket())

	for _, key := range []string{QuoteKey("anna", 1, "pdf"), QuoteKey("anna", 2, "xlsx"), QuoteKey("annabel", 1, "pdf")} {
		require.NoError(t, s.Put(ctx, key, bytes.NewReader([]byte(key)), int64(len(key)), "application/pdf"))
	}

	rc, err := s.Get(ctx, QuoteKey("anna", 1, "pdf"))
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "quotes/anna/1.pdf", string(data))

	removed, err := s.DeletePrefix(ctx, QuotePrefix("anna"))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.Get(ctx, QuoteKey("anna", 1, "pdf"))
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = s.Get(ctx, QuoteKey("annabel", 1, "pdf"))
	assert.NoError(t, err)

	require.NoError(t, s.Delete(ctx, QuoteKey("annabel", 1, "pdf")))
	assert.Empty(t, s.backend.(*MemoryBackend).Keys())
}
