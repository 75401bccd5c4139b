// Package archive builds zip, gzip-compressed tar and 7z archives.
package archive

import (
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
)

type Format string

const (
	Zip      Format = "zip"
	Tar      Format = "tar"
	SevenZip Format = "7z"
)

// Formats is the allow-list accepted by ParseFormat.
var Formats = []Format{Zip, Tar, SevenZip}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, s)
}

func (f Format) MediaType() string {
	switch f {
	case Zip:
		return "application/x-zip-compressed"
	case Tar:
		return "application/x-gtar"
	case SevenZip:
		return "application/x-7z-compressed"
	}
	return "application/octet-stream"
}

// FileName is the download name offered for an archive of this format.
func (f Format) FileName() string {
	return "archive." + string(f)
}

// Entry describes one file added to an archive.
type Entry struct {
	Name    string
	ModTime time.Time
}

type Writer interface {
	Add(e Entry, r io.Reader) error
	Close() error
}

func NewWriter(f Format, w io.Writer) (Writer, error) {
	switch f {
	case Zip:
		return newZipWriter(w), nil
	case Tar:
		return newTarWriter(w), nil
	case SevenZip:
		return newSevenZipWriter(w), nil
	}
	return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, string(f))
}
