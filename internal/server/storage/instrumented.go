package storage

import (
	"context"
	"io"
	"time"

	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/docker/go-metrics"
)

var backendLatency = prometheus.StorageNamespace.NewLabeledTimer("backend", "Number of seconds taken by storage backend operations", "backend", "operation")

type instrumented struct {
	Backend
	name         string
	latencyTimer metrics.LabeledTimer
}

// Instrumented wraps b so that every call is timed under the given
// backend label.
func Instrumented(b Backend, name string) Backend {
	return &instrumented{Backend: b, name: name, latencyTimer: backendLatency}
}

func (i *instrumented) observe(op string, start time.Time) {
	i.latencyTimer.WithValues(i.name, op).UpdateSince(start)
}

func (i *instrumented) EnsureDir(ctx context.Context, p string) (bool, error) {
	defer i.observe("EnsureDir", time.Now())
	return i.Backend.EnsureDir(ctx, p)
}

func (i *instrumented) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	defer i.observe("Write", time.Now())
	return i.Backend.Write(ctx, p, r)
}

func (i *instrumented) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	defer i.observe("Open", time.Now())
	return i.Backend.Open(ctx, p)
}

func (i *instrumented) Stat(ctx context.Context, p string) (Info, error) {
	defer i.observe("Stat", time.Now())
	return i.Backend.Stat(ctx, p)
}

func (i *instrumented) ListFiles(ctx context.Context, dir string) ([]Info, error) {
	defer i.observe("ListFiles", time.Now())
	return i.Backend.ListFiles(ctx, dir)
}
