package lspconn

import (
	"context"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Registry is the session-scoped set of server connections, keyed by the
// language IDs each connection serves. It is created once per session and
// passed by reference to the components that resolve server sets; teardown
// is explicit via Shutdown.
//
// The registry owns no process lifecycle: connections are registered after
// they are established and removed when their owner stops them.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

type registryEntry struct {
	conn      Conn
	languages []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a connection as serving the given language IDs.
func (r *Registry) Add(conn Conn, languages ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, registryEntry{conn: conn, languages: languages})
}

// Remove unregisters the connection with the given ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.conn.ID() == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// All returns every registered connection.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.entries))
	for _, e := range r.entries {
		conns = append(conns, e.conn)
	}
	return conns
}

// ForLanguage returns the active connections serving a language ID.
func (r *Registry) ForLanguage(lang string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var conns []Conn
	for _, e := range r.entries {
		if slices.Contains(e.languages, lang) && e.conn.IsActive() {
			conns = append(conns, e.conn)
		}
	}
	return conns
}

// ForLanguages returns the connections serving any of the given language IDs.
// Connections that have stopped are included unless excludeInactive is set;
// a stopped connection may be restarted by its owner, so project-scoped
// callers usually want it in the set.
func (r *Registry) ForLanguages(langs []string, excludeInactive bool) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var conns []Conn
	for _, e := range r.entries {
		if excludeInactive && !e.conn.IsActive() {
			continue
		}
		for _, lang := range langs {
			if slices.Contains(e.languages, lang) {
				conns = append(conns, e.conn)
				break
			}
		}
	}
	return conns
}

// Shutdown closes every registered connection that supports closing and
// empties the registry. Failures are aggregated; one connection failing to
// close does not stop the others.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	var errs *multierror.Error
	for _, e := range entries {
		if closer, ok := e.conn.(interface{ Close(context.Context) error }); ok {
			if err := closer.Close(ctx); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}
