package archive

import (
	"io"

	"github.com/dmitrijs2005/filestore/internal/archive/sevenzip"
)

type sevenZipWriter struct {
	w *sevenzip.Writer
}

func newSevenZipWriter(w io.Writer) *sevenZipWriter {
	return &sevenZipWriter{w: sevenzip.NewWriter(w)}
}

func (s *sevenZipWriter) Add(e Entry, r io.Reader) error {
	return s.w.Add(e.Name, e.ModTime, r)
}

func (s *sevenZipWriter) Close() error {
	return s.w.Close()
}
