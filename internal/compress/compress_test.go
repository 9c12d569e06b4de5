package compress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nilsroemer/cryptofrag/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("fragment payload "), 200)
	compressed, err := Compress(data)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(data))

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestRoundTripEmpty(t *testing.T) {
	compressed, err := Compress(nil)
	require.NoError(t, err)

	out, err := Decompress(compressed)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDecompressMalformed(t *testing.T) {
	_, err := Decompress([]byte("not a zlib stream"))
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrBadCompression))
}

func TestDecompressTruncated(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 4096)
	compressed, err := Compress(data)
	require.NoError(t, err)

	_, err = Decompress(compressed[:len(compressed)-4])
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrBadCompression))
}
