package postgres

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionAlgo specifies how a stored note is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultNoteThreshold is the note size above which notes are compressed.
const DefaultNoteThreshold = 4 * 1024

// NoteCodec stores long status-audit notes zstd-compressed.
// Short notes stay in plain text so they remain searchable.
// A NoteCodec is safe for concurrent use.
type NoteCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewNoteCodec creates a codec compressing notes longer than threshold bytes.
// A non-positive threshold selects DefaultNoteThreshold.
func NewNoteCodec(threshold int) (*NoteCodec, error) {
	if threshold <= 0 {
		threshold = DefaultNoteThreshold
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &NoteCodec{
		encoder:   encoder,
		decoder:   decoder,
		threshold: threshold,
	}, nil
}

// StoredNote is the column representation of a note.
type StoredNote struct {
	Text       string          `db:"note"`
	Compressed []byte          `db:"note_compressed"`
	Algo       CompressionAlgo `db:"note_compression"`
}

// Encode prepares a note for storage.
func (c *NoteCodec) Encode(note string) StoredNote {
	if len(note) <= c.threshold {
		return StoredNote{Text: note, Algo: CompressionNone}
	}
	return StoredNote{
		Compressed: c.encoder.EncodeAll([]byte(note), nil),
		Algo:       CompressionZstd,
	}
}

// Decode restores the original note.
func (c *NoteCodec) Decode(n StoredNote) (string, error) {
	if n.Algo != CompressionZstd || len(n.Compressed) == 0 {
		return n.Text, nil
	}
	raw, err := c.decoder.DecodeAll(n.Compressed, nil)
	if err != nil {
		return "", fmt.Errorf("decompress note: %w", err)
	}
	return string(raw), nil
}

// Close releases decoder resources.
func (c *NoteCodec) Close() {
	c.decoder.Close()
	_ = c.encoder.Close()
}
