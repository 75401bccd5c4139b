// Package models defines the catalog records persisted in the database.
package models

import "time"

// File is a stored object addressed by its canonical path. Path is unique
// across files and directories combined; it never changes once the record
// exists, and neither does UserID.
type File struct {
	ID     string
	UserID string
	Name   string
	Path   string
	Size   int64
	// CreatedAt is refreshed on every overwrite, so it doubles as the
	// modification timestamp.
	CreatedAt time.Time
	// IsDownloadable gates direct (non-archived) downloads.
	IsDownloadable bool
}
