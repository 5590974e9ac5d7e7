package xmlparser

// DefaultSampleSize is the element cap used by sample runs.
const DefaultSampleSize = 50_000

// Options controls decoder behavior. Zero values pick sensible defaults.
type Options struct {
	// Limit stops the stream after this many yielded elements; 0 => unlimited.
	Limit int

	// BufSize is the bufio.Reader size wrapped around the decompressed
	// stream; 0 => 1<<20.
	BufSize int
}

// Option mutates Options.
type Option func(*Options)

// WithLimit caps the number of yielded elements (sample mode).
func WithLimit(n int) Option {
	return func(o *Options) { o.Limit = n }
}

// WithBufSize overrides the read buffer size.
func WithBufSize(n int) Option {
	return func(o *Options) { o.BufSize = n }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.BufSize <= 0 {
		o.BufSize = 1 << 20
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}
