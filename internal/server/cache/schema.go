package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filestore/internal/server/models"
)

// Schema is an explicit encode/decode pair for one cached shape.
type Schema[T any] struct {
	Name   string
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// fileRecord is the cached snapshot of a resolved File. Timestamps are
// kept as Unix nanoseconds so nothing is lost to CBOR time tags.
type fileRecord struct {
	ID             string `cbor:"1,keyasint"`
	UserID         string `cbor:"2,keyasint"`
	Name           string `cbor:"3,keyasint"`
	Path           string `cbor:"4,keyasint"`
	Size           int64  `cbor:"5,keyasint"`
	CreatedAt      int64  `cbor:"6,keyasint"`
	IsDownloadable bool   `cbor:"7,keyasint"`
}

func toFileRecord(f *models.File) fileRecord {
	return fileRecord{
		ID:             f.ID,
		UserID:         f.UserID,
		Name:           f.Name,
		Path:           f.Path,
		Size:           f.Size,
		CreatedAt:      f.CreatedAt.UnixNano(),
		IsDownloadable: f.IsDownloadable,
	}
}

func (r fileRecord) toModel() *models.File {
	return &models.File{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		Path:           r.Path,
		Size:           r.Size,
		CreatedAt:      time.Unix(0, r.CreatedAt).UTC(),
		IsDownloadable: r.IsDownloadable,
	}
}

// pathRecord is the path-only projection used for id-to-path lookups.
type pathRecord struct {
	Path string `cbor:"1,keyasint"`
}

type listingRecord struct {
	Files []fileRecord `cbor:"1,keyasint"`
}

var errNilValue = errors.New("nil value")

// FileSchema caches a resolved File.
var FileSchema = Schema[*models.File]{
	Name: "file",
	Encode: func(f *models.File) ([]byte, error) {
		if f == nil {
			return nil, errNilValue
		}
		return encMode.Marshal(toFileRecord(f))
	},
	Decode: func(b []byte) (*models.File, error) {
		var r fileRecord
		if err := decMode.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("decode file: %w", err)
		}
		if r.Path == "" {
			return nil, errors.New("decode file: empty path")
		}
		return r.toModel(), nil
	},
}

// PathSchema caches only the canonical path of a File or Directory.
var PathSchema = Schema[string]{
	Name: "path",
	Encode: func(p string) ([]byte, error) {
		return encMode.Marshal(pathRecord{Path: p})
	},
	Decode: func(b []byte) (string, error) {
		var r pathRecord
		if err := decMode.Unmarshal(b, &r); err != nil {
			return "", fmt.Errorf("decode path: %w", err)
		}
		if r.Path == "" {
			return "", errors.New("decode path: empty path")
		}
		return r.Path, nil
	},
}

// ListingSchema caches the files owned by one user.
var ListingSchema = Schema[[]*models.File]{
	Name: "listing",
	Encode: func(files []*models.File) ([]byte, error) {
		r := listingRecord{Files: make([]fileRecord, 0, len(files))}
		for _, f := range files {
			r.Files = append(r.Files, toFileRecord(f))
		}
		return encMode.Marshal(r)
	},
	Decode: func(b []byte) ([]*models.File, error) {
		var r listingRecord
		if err := decMode.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		files := make([]*models.File, 0, len(r.Files))
		for _, fr := range r.Files {
			files = append(files, fr.toModel())
		}
		return files, nil
	},
}
