// Package xmlparser streams top-level entity elements out of very large XML
// documents without holding the document in memory.
//
// The decoder walks the token stream with encoding/xml and materializes one
// element subtree at a time (see Node). Only children of the document root
// whose local name matches the requested tag are yielded, so nested elements
// that share the tag (a <label> inside <sublabels>) are never mistaken for
// entities.
//
// Typical use:
//
//	dec, err := xmlparser.Open(ctx, "discogs_20240701_labels.xml.gz", "label")
//	if err != nil { ... }
//	defer dec.Close()
//	for dec.Next() {
//	    n := dec.Element()
//	    ...
//	}
//	if err := dec.Err(); err != nil { ... }
//
// Next releases the previously yielded element, so callers must finish with
// an element (and anything derived from it that still references it) before
// advancing.
package xmlparser

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/ianaindex"
)

// Decoder yields fully materialized top-level elements in document order.
type Decoder struct {
	tag  string
	opts Options
	dec  *xml.Decoder

	closers []func() error

	depth   int
	cur     *Node
	count   int
	err     error
	done    bool
	sampled bool
}

// NewDecoder returns a Decoder reading already decompressed XML from r and
// yielding root children named tag.
func NewDecoder(r io.Reader, tag string, opts ...Option) *Decoder {
	o := buildOptions(opts)
	dec := xml.NewDecoder(bufio.NewReaderSize(r, o.BufSize))
	dec.Strict = true
	dec.CharsetReader = charsetReader
	return &Decoder{tag: tag, opts: o, dec: dec}
}

// Next advances to the next matching element. It returns false at the end
// of the document, when the sample limit is reached, or on error; Err
// distinguishes the cases.
func (d *Decoder) Next() bool {
	// Drop the previous subtree before decoding the next one.
	d.cur = nil

	if d.done {
		return false
	}
	if d.opts.Limit > 0 && d.count >= d.opts.Limit {
		d.done = true
		d.sampled = d.more()
		return false
	}

	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			d.done = true
			if d.depth != 0 {
				d.fail(io.ErrUnexpectedEOF)
			}
			return false
		}
		if err != nil {
			d.fail(err)
			return false
		}

		switch t := tok.(type) {
		case xml.StartElement:
			d.depth++
			if d.depth != 2 || t.Name.Local != d.tag {
				continue
			}
			n := &Node{}
			if err := d.dec.DecodeElement(n, &t); err != nil {
				d.fail(err)
				return false
			}
			// DecodeElement consumed the matching end element.
			d.depth--
			d.cur = n
			d.count++
			return true

		case xml.EndElement:
			d.depth--
		}
	}
}

// more scans ahead for another matching element without decoding it. A read
// error after the limit counts as more input.
func (d *Decoder) more() bool {
	for {
		tok, err := d.dec.Token()
		if err == io.EOF {
			return false
		}
		if err != nil {
			return true
		}
		switch t := tok.(type) {
		case xml.StartElement:
			d.depth++
			if d.depth == 2 && t.Name.Local == d.tag {
				return true
			}
		case xml.EndElement:
			d.depth--
		}
	}
}

// Element returns the element produced by the last successful Next.
func (d *Decoder) Element() *Node { return d.cur }

// Err returns the first decoding error, or nil on a clean end of stream.
func (d *Decoder) Err() error { return d.err }

// Count reports how many elements have been yielded so far.
func (d *Decoder) Count() int { return d.count }

// Sampled reports whether the stream stopped at the element limit with more
// matching elements left, rather than at the end of the document.
func (d *Decoder) Sampled() bool { return d.sampled }

// Tag returns the element tag being streamed.
func (d *Decoder) Tag() string { return d.tag }

// Close releases the decompressor and the underlying source, if the
// Decoder owns them.
func (d *Decoder) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	d.cur = nil
	return errors.Join(errs...)
}

func (d *Decoder) fail(err error) {
	d.done = true
	d.err = &DecodeError{
		Tag:    d.tag,
		Offset: d.dec.InputOffset(),
		Index:  d.count,
		Err:    err,
	}
}

// charsetReader lets documents declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q: unsupported", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
