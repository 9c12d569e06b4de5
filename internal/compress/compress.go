// Package compress performs per-fragment deflate/inflate using zlib
// framing, so a stray truncated stream is caught by zlib's own Adler-32
// trailer rather than silently decoding garbage.
package compress

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/nilsroemer/cryptofrag/internal/errs"
)

// Compress deflates data with zlib framing at the default compression
// level. It never fails for well-formed input; the returned error exists
// only because compress/zlib's Writer surfaces one.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream produced by Compress. Malformed input
// (truncated stream, bad header, checksum failure) surfaces as
// errs.ErrBadCompression.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadCompression, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrBadCompression, err)
	}
	return out, nil
}
