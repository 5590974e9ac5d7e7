// Package datasource defines where raw dump bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source yields the raw (possibly compressed) bytes of one dump file.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
