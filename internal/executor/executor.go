package executor

import (
	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"

	"github.com/dshills/lspsync/internal/docsync"
	"github.com/dshills/lspsync/internal/lspconn"
)

// Project describes a project scope: a root directory and the language IDs
// its content uses.
type Project struct {
	Root      string
	Languages []string
}

// Executor resolves the set of connections a request goes to. Filters narrow
// the set by capability; resolution happens at dispatch time, so a filter
// added after construction still applies.
type Executor struct {
	session *docsync.Session
	uri     protocol.DocumentURI

	registry *lspconn.Registry
	project  Project

	filters         []lspconn.Filter
	excludeInactive bool
	log             *logrus.Entry
}

// ForDocument scopes requests to the connections that have uri open.
func ForDocument(session *docsync.Session, uri protocol.DocumentURI) *Executor {
	return &Executor{
		session: session,
		uri:     uri,
		log:     logrus.WithField("uri", uri),
	}
}

// ForProject scopes requests to the connections registered for any of the
// project's languages, including stopped ones unless ExcludeInactive is set.
func ForProject(registry *lspconn.Registry, project Project) *Executor {
	return &Executor{
		registry: registry,
		project:  project,
		log:      logrus.WithField("project", project.Root),
	}
}

// WithFilter keeps only connections whose capabilities pass f. Multiple
// filters compose with AND.
func (e *Executor) WithFilter(f lspconn.Filter) *Executor {
	e.filters = append(e.filters, f)
	return e
}

// ExcludeInactive drops connections that have stopped.
func (e *Executor) ExcludeInactive() *Executor {
	e.excludeInactive = true
	return e
}

func (e *Executor) matches(conn lspconn.Conn) bool {
	for _, f := range e.filters {
		if !f(conn.Capabilities()) {
			return false
		}
	}
	return true
}

// Synchronizers resolves the document scope. It returns nil for a
// project-scoped executor.
func (e *Executor) Synchronizers() []*docsync.Synchronizer {
	if e.session == nil {
		return nil
	}
	var out []*docsync.Synchronizer
	for _, s := range e.session.SynchronizersFor(e.uri) {
		if e.excludeInactive && !s.Conn().IsActive() {
			continue
		}
		if e.matches(s.Conn()) {
			out = append(out, s)
		}
	}
	return out
}

// Conns resolves the connection set for the executor's scope.
func (e *Executor) Conns() []lspconn.Conn {
	if e.session != nil {
		syncs := e.Synchronizers()
		conns := make([]lspconn.Conn, len(syncs))
		for i, s := range syncs {
			conns[i] = s.Conn()
		}
		return conns
	}
	var out []lspconn.Conn
	for _, conn := range e.registry.ForLanguages(e.project.Languages, e.excludeInactive) {
		if e.matches(conn) {
			out = append(out, conn)
		}
	}
	return out
}
