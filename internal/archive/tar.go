package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

type tarWriter struct {
	gz *gzip.Writer
	tw *tar.Writer
}

func newTarWriter(w io.Writer) *tarWriter {
	gz := gzip.NewWriter(w)
	return &tarWriter{gz: gz, tw: tar.NewWriter(gz)}
}

// Add buffers the content first: a tar header carries the exact size, and
// the stored size may have changed since it was last looked at.
func (t *tarWriter) Add(e Entry, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("tar read %s: %w", e.Name, err)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     e.Name,
		Mode:     0o644,
		Size:     int64(buf.Len()),
		ModTime:  e.ModTime,
		Format:   tar.FormatPAX,
	}
	if err := t.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("tar header %s: %w", e.Name, err)
	}
	if _, err := t.tw.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("tar write %s: %w", e.Name, err)
	}
	return nil
}

func (t *tarWriter) Close() error {
	if err := t.tw.Close(); err != nil {
		return err
	}
	return t.gz.Close()
}
