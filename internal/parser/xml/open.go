package xmlparser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"discogs/internal/datasource"
	"discogs/internal/datasource/file"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Open streams tag elements from the dump at path. Compression is detected
// from the leading magic bytes (gzip, zstd or plain XML), not the file name.
//
// A missing path yields an error wrapping ErrSourceNotFound before anything
// is read. Compression header errors are reported as *DecodeError.
func Open(ctx context.Context, path, tag string, opts ...Option) (*Decoder, error) {
	src := file.NewLocal(path)
	ok, err := src.Exists()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}

	return OpenSource(ctx, src, tag, opts...)
}

// OpenSource is Open over any byte source. The Decoder closes the source.
func OpenSource(ctx context.Context, src datasource.Source, tag string, opts ...Option) (*Decoder, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}

	r, closeFn, err := decompress(rc)
	if err != nil {
		_ = rc.Close()
		return nil, &DecodeError{Tag: tag, Err: err}
	}

	d := NewDecoder(r, tag, opts...)
	d.closers = append(d.closers, rc.Close, closeFn)
	return d, nil
}

// decompress wraps r in the decompressor matching its magic bytes.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	magic, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, err
	}

	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, zr.Close, nil

	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, func() error { zr.Close(); return nil }, nil

	default:
		return br, func() error { return nil }, nil
	}
}
