package xmlparser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func collectIDs(t *testing.T, d *Decoder) []string {
	t.Helper()
	var ids []string
	for d.Next() {
		n := d.Element()
		id, _ := n.ChildText("id")
		ids = append(ids, id)
	}
	return ids
}

func TestDecoder_TopLevelOnly(t *testing.T) {
	t.Parallel()

	doc := `<labels>
  <label><id>1</id><name>A</name>
    <sublabels><label id="2">B</label></sublabels>
  </label>
  <label><id>3</id><name>C</name></label>
</labels>`

	d := NewDecoder(strings.NewReader(doc), "label")
	ids := collectIDs(t, d)
	if err := d.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if got, want := strings.Join(ids, ","), "1,3"; got != want {
		t.Fatalf("ids = %q, want %q", got, want)
	}
	if d.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", d.Count())
	}
	if d.Sampled() {
		t.Fatalf("Sampled() = true on a full read")
	}
}

func TestDecoder_SubtreeMaterialized(t *testing.T) {
	t.Parallel()

	doc := `<releases><release id="7" status="Accepted">
  <title> Kind of Blue </title>
  <labels><label name="Columbia" catno="CL 1355" id="1866"/></labels>
  <tracklist><track><position>A1</position><title>So What</title></track></tracklist>
</release></releases>`

	d := NewDecoder(strings.NewReader(doc), "release")
	if !d.Next() {
		t.Fatalf("Next() = false, err=%v", d.Err())
	}
	n := d.Element()
	if n.Name != "release" || n.Attr("id") != "7" || n.Attr("status") != "Accepted" {
		t.Fatalf("unexpected root node: %+v", n)
	}
	if title, ok := n.ChildText("title"); !ok || title != " Kind of Blue " {
		t.Fatalf("title = %q, %v", title, ok)
	}
	labels := n.Find("labels/label")
	if len(labels) != 1 || labels[0].Attr("catno") != "CL 1355" {
		t.Fatalf("labels/label = %+v", labels)
	}
	if got := n.Find("tracklist/track/title"); len(got) != 1 || got[0].Text != "So What" {
		t.Fatalf("tracklist/track/title = %+v", got)
	}
	if n.Find("missing/path") != nil {
		t.Fatalf("Find on missing path should be nil")
	}
	if d.Next() {
		t.Fatalf("expected end of stream")
	}
	if d.Element() != nil {
		t.Fatalf("Element() should be released after Next")
	}
}

func TestDecoder_Limit(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<artists>")
	for i := 0; i < 10; i++ {
		b.WriteString("<artist><id>1</id></artist>")
	}
	b.WriteString("</artists>")

	d := NewDecoder(strings.NewReader(b.String()), "artist", WithLimit(4))
	ids := collectIDs(t, d)
	if len(ids) != 4 {
		t.Fatalf("got %d elements, want 4", len(ids))
	}
	if !d.Sampled() {
		t.Fatalf("Sampled() = false, want true")
	}
	if d.Err() != nil {
		t.Fatalf("Err() = %v", d.Err())
	}
}

func TestDecoder_LimitLargerThanDocument(t *testing.T) {
	t.Parallel()

	doc := `<masters><master id="1"/><master id="2"/></masters>`
	d := NewDecoder(strings.NewReader(doc), "master", WithLimit(DefaultSampleSize))
	n := 0
	for d.Next() {
		n++
	}
	if n != 2 || d.Sampled() || d.Err() != nil {
		t.Fatalf("n=%d sampled=%v err=%v", n, d.Sampled(), d.Err())
	}
}

func TestDecoder_LimitEqualToDocument(t *testing.T) {
	t.Parallel()

	doc := `<masters><master id="1"/><master id="2"/><data_end/></masters>`
	d := NewDecoder(strings.NewReader(doc), "master", WithLimit(2))
	n := 0
	for d.Next() {
		n++
	}
	if n != 2 || d.Sampled() || d.Err() != nil {
		t.Fatalf("n=%d sampled=%v err=%v", n, d.Sampled(), d.Err())
	}
	if d.Next() {
		t.Fatal("Next after the limit = true")
	}
}

func TestDecoder_MalformedIsDecodeError(t *testing.T) {
	t.Parallel()

	doc := `<artists><artist><id>1</id></artist><artist><id>2</id></artis></artists>`
	d := NewDecoder(strings.NewReader(doc), "artist")
	ids := collectIDs(t, d)
	if len(ids) != 1 {
		t.Fatalf("got %d elements before failure, want 1", len(ids))
	}
	var de *DecodeError
	if !errors.As(d.Err(), &de) {
		t.Fatalf("Err() = %v, want *DecodeError", d.Err())
	}
	if de.Tag != "artist" || de.Index != 1 {
		t.Fatalf("DecodeError = %+v", de)
	}
}

func TestDecoder_TruncatedIsDecodeError(t *testing.T) {
	t.Parallel()

	d := NewDecoder(strings.NewReader(`<labels><label><id>1</id>`), "label")
	for d.Next() {
	}
	var de *DecodeError
	if !errors.As(d.Err(), &de) {
		t.Fatalf("Err() = %v, want *DecodeError", d.Err())
	}
}

func TestDecoder_CharsetDeclaration(t *testing.T) {
	t.Parallel()

	// "Bj\xf6rk" is Latin-1 for Björk.
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><artists><artist><name>Bj\xf6rk</name></artist></artists>"
	d := NewDecoder(strings.NewReader(doc), "artist")
	if !d.Next() {
		t.Fatalf("Next() = false, err=%v", d.Err())
	}
	if name, _ := d.Element().ChildText("name"); name != "Björk" {
		t.Fatalf("name = %q, want Björk", name)
	}
}

func writeCompressed(t *testing.T, dir, name, kind string, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	switch kind {
	case "gzip":
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		if _, err := zw.Write(payload); err != nil {
			t.Fatalf("zstd write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zstd close: %v", err)
		}
	default:
		buf.Write(payload)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestOpen_Compression(t *testing.T) {
	t.Parallel()

	doc := []byte(`<labels><label><id>1</id></label><label><id>2</id></label></labels>`)
	for _, kind := range []string{"gzip", "zstd", "plain"} {
		kind := kind
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			p := writeCompressed(t, t.TempDir(), "labels.xml.gz", kind, doc)
			d, err := Open(context.Background(), p, "label")
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer d.Close()
			ids := collectIDs(t, d)
			if d.Err() != nil {
				t.Fatalf("Err() = %v", d.Err())
			}
			if got := strings.Join(ids, ","); got != "1,2" {
				t.Fatalf("ids = %q", got)
			}
		})
	}
}

func TestOpen_SourceNotFound(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "discogs_20240701_labels.xml.gz")
	d, err := Open(context.Background(), p, "label")
	if d != nil {
		t.Fatalf("expected nil decoder")
	}
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	if !strings.Contains(err.Error(), p) {
		t.Fatalf("error %q does not name the path", err)
	}
}

func TestOpen_CorruptGzip(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "artists.xml.gz")
	// Valid gzip magic followed by garbage.
	if err := os.WriteFile(p, []byte{0x1f, 0x8b, 0x00, 0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Open(context.Background(), p, "artist")
	if err == nil {
		for d.Next() {
		}
		err = d.Err()
		d.Close()
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
}

func synth(n int) string {
	var b strings.Builder
	b.WriteString("<releases>")
	for i := 0; i < n; i++ {
		b.WriteString(`<release id="1"><title>T</title><genres><genre>Jazz</genre></genres></release>`)
	}
	b.WriteString("</releases>")
	return b.String()
}

func BenchmarkDecoder(b *testing.B) {
	doc := synth(20000)

	b.ReportAllocs()
	b.SetBytes(int64(len(doc)))
	for i := 0; i < b.N; i++ {
		d := NewDecoder(strings.NewReader(doc), "release")
		for d.Next() {
		}
		if err := d.Err(); err != nil {
			b.Fatal(err)
		}
	}
}

type memSource struct {
	data   []byte
	closed bool
}

func (m *memSource) Open(context.Context) (io.ReadCloser, error) { return m, nil }

func (m *memSource) Read(p []byte) (int, error) {
	if len(m.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.data)
	m.data = m.data[n:]
	return n, nil
}

func (m *memSource) Close() error { m.closed = true; return nil }

func TestOpenSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(`<masters><master id="7"/></masters>`)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	src := &memSource{data: buf.Bytes()}
	d, err := OpenSource(context.Background(), src, "master")
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	if !d.Next() || d.Element().Attr("id") != "7" {
		t.Fatalf("first element = %+v, err = %v", d.Element(), d.Err())
	}
	if d.Next() || d.Err() != nil {
		t.Fatalf("Next after last = true or err %v", d.Err())
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.closed {
		t.Fatal("source not closed")
	}
}
