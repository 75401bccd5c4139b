package models

// Directory is a materialized parent segment of some uploaded file's path.
// Directories are created lazily and never updated.
type Directory struct {
	ID   string
	Path string
}
