package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/dmitrijs2005/filestore/internal/server/models"
)

type fileResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	Path           string    `json:"path"`
	Size           int64     `json:"size"`
	IsDownloadable bool      `json:"is_downloadable"`
}

type listResponse struct {
	AccountID string         `json:"account_id"`
	Files     []fileResponse `json:"files"`
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:             f.ID,
		Name:           f.Name,
		CreatedAt:      f.CreatedAt,
		Path:           f.Path,
		Size:           f.Size,
		IsDownloadable: f.IsDownloadable,
	}
}

// uploadPath appends filename to target unless target already ends with it.
func uploadPath(target, filename string) string {
	if i := strings.LastIndex(target, common.PathSeparator); i >= 0 && target[i+1:] == filename {
		return target
	}
	return strings.TrimSuffix(target, common.PathSeparator) + common.PathSeparator + filename
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	l, err := s.deps.Resolver.ListOwned(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := listResponse{AccountID: l.AccountID, Files: make([]fileResponse, 0, len(l.Files))}
	for _, f := range l.Files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	target := r.URL.Query().Get("path")
	if !strings.HasPrefix(target, common.PathSeparator) {
		s.writeError(w, r, fmt.Errorf("%w: path must start with %s", common.ErrInvalidPath, common.PathSeparator))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "multipart form with a file field is required"})
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			part.Close()
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "file field has no filename"})
			return
		}

		f, err := s.deps.Mutator.CreateOrPut(r.Context(), id, uploadPath(target, filename), part)
		part.Close()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.logger.Info(r.Context(), "Upload new file success", "path", f.Path, "user_id", id.UserID)
		writeJSON(w, http.StatusCreated, toFileResponse(f))
		return
	}

	writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "multipart form with a file field is required"})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	locator := q.Get("path")
	if locator == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "path is required"})
		return
	}

	if ct := q.Get("compression_type"); ct != "" {
		a, err := s.deps.Archiver.Build(r.Context(), locator, ct)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", a.MediaType)
		w.Header().Set("Content-Disposition", attachment(a.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(a.Data)
		s.logger.Info(r.Context(), "archive download", "locator", locator, "format", ct, "user_id", id.UserID)
		return
	}

	f, err := s.deps.Resolver.FileForDownload(r.Context(), locator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !f.IsDownloadable {
		s.writeError(w, r, fmt.Errorf("%w: %s is not downloadable", common.ErrAccessDenied, f.Path))
		return
	}

	rc, err := s.deps.Backend.Open(r.Context(), f.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", attachment(f.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn(r.Context(), "download interrupted", "path", f.Path, "error", err)
	}
}
