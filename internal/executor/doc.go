// Package executor fans language-server requests out to every connection in
// scope and aggregates the results. Scope is either one open document (its
// synchronizers, so requests stay ordered with respect to content changes)
// or a project (every connection registered for the project's languages).
package executor
