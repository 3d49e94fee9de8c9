package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteCodec(t *testing.T) {
	codec, err := NewNoteCodec(64)
	require.NoError(t, err)
	defer codec.Close()

	t.Run("short notes stay plain", func(t *testing.T) {
		stored := codec.Encode("supplier confirmed")
		assert.Equal(t, CompressionNone, stored.Algo)
		assert.Nil(t, stored.Compressed)

		got, err := codec.Decode(stored)
		require.NoError(t, err)
		assert.Equal(t, "supplier confirmed", got)
	})

	t.Run("long notes are compressed", func(t *testing.T) {
		note := strings.Repeat("pallet 7 damaged in transit; ", 20)
		stored := codec.Encode(note)
		assert.Equal(t, CompressionZstd, stored.Algo)
		assert.Empty(t, stored.Text)
		assert.Less(t, len(stored.Compressed), len(note))

		got, err := codec.Decode(stored)
		require.NoError(t, err)
		assert.Equal(t, note, got)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		_, err := codec.Decode(StoredNote{Compressed: []byte("not zstd"), Algo: CompressionZstd})
		assert.Error(t, err)
	})
}

func TestNoteCodecDefaultThreshold(t *testing.T) {
	codec, err := NewNoteCodec(0)
	require.NoError(t, err)
	defer codec.Close()

	stored := codec.Encode(strings.Repeat("x", DefaultNoteThreshold))
	assert.Equal(t, CompressionNone, stored.Algo)
}
