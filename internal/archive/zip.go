package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

type zipWriter struct {
	zw *zip.Writer
}

func newZipWriter(w io.Writer) *zipWriter {
	return &zipWriter{zw: zip.NewWriter(w)}
}

func (z *zipWriter) Add(e Entry, r io.Reader) error {
	fw, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: e.ModTime,
	})
	if err != nil {
		return fmt.Errorf("zip header %s: %w", e.Name, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("zip write %s: %w", e.Name, err)
	}
	return nil
}

func (z *zipWriter) Close() error {
	return z.zw.Close()
}
