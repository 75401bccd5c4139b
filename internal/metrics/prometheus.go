// Package metrics holds the Prometheus namespaces shared by the server
// components.
package metrics

import (
	"net/http"
	"sync"

	"github.com/docker/go-metrics"
)

const (
	// NamespacePrefix is the namespace of prometheus metrics
	NamespacePrefix = "filestore"
)

var (
	// CacheNamespace covers cache-aside lookups and the cache store itself.
	CacheNamespace = metrics.NewNamespace(NamespacePrefix, "cache", nil)

	// StorageNamespace covers backend file operations and archive builds.
	StorageNamespace = metrics.NewNamespace(NamespacePrefix, "storage", nil)

	// HTTPNamespace covers the API boundary.
	HTTPNamespace = metrics.NewNamespace(NamespacePrefix, "http", nil)
)

var registerOnce sync.Once

// Register adds every namespace to the default Prometheus registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		metrics.Register(CacheNamespace)
		metrics.Register(StorageNamespace)
		metrics.Register(HTTPNamespace)
	})
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return metrics.Handler()
}
