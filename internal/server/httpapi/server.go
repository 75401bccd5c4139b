// Package httpapi exposes the file store over HTTP under /api/v1.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filestore/internal/logging"
	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/dmitrijs2005/filestore/internal/server/models"
	"github.com/dmitrijs2005/filestore/internal/server/services"
	"github.com/dmitrijs2005/filestore/internal/server/storage"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// APIPrefix is the path prefix of every API route.
const APIPrefix = "/api/v1"

type Users interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (auth.Identity, error)
}

type Resolver interface {
	FileForDownload(ctx context.Context, locator string) (*models.File, error)
	ListOwned(ctx context.Context, owner auth.Identity) (*services.Listing, error)
}

type Mutator interface {
	CreateOrPut(ctx context.Context, owner auth.Identity, p string, content io.Reader) (*models.File, error)
}

type Archiver interface {
	Build(ctx context.Context, locator string, compressionType string) (*services.Archive, error)
}

type Health interface {
	Check(ctx context.Context) services.Report
}

// Deps are the collaborators the handlers delegate to.
type Deps struct {
	Users    Users
	Resolver Resolver
	Mutator  Mutator
	Archiver Archiver
	Health   Health
	Backend  storage.Backend
}

type Server struct {
	address       string
	logger        logging.Logger
	deps          Deps
	maxUploadSize int64
}

func NewServer(address string, l logging.Logger, deps Deps, maxUploadSize int64) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		deps:          deps,
		maxUploadSize: maxUploadSize,
	}
}

// Handler returns the routed API wrapped in request logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix(APIPrefix).Subrouter()

	api.Handle("/register", handlers.MethodHandler{"POST": http.HandlerFunc(s.register)})
	api.Handle("/auth", handlers.MethodHandler{"POST": http.HandlerFunc(s.authenticate)})
	api.Handle("/token", handlers.MethodHandler{"POST": http.HandlerFunc(s.token)})
	api.Handle("/refresh", handlers.MethodHandler{"POST": http.HandlerFunc(s.refresh)})
	api.Handle("/ping", handlers.MethodHandler{"GET": http.HandlerFunc(s.ping)})

	files := api.PathPrefix("/files").Subrouter()
	files.Use(s.requireIdentity)
	files.Handle("/list", handlers.MethodHandler{"GET": http.HandlerFunc(s.listFiles)})
	files.Handle("/upload", handlers.MethodHandler{"POST": http.HandlerFunc(s.upload)})
	files.Handle("/download", handlers.MethodHandler{"GET": http.HandlerFunc(s.download)})

	router.Handle("/metrics", prometheus.Handler())

	var h http.Handler = router
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)

	opts := []handlers.RecoveryOption{handlers.PrintRecoveryStack(false)}
	if rl, ok := s.logger.(handlers.RecoveryHandlerLogger); ok {
		opts = append(opts, handlers.RecoveryLogger(rl))
	}
	return handlers.RecoveryHandler(opts...)(h)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
