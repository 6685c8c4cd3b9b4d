// Package feature wraps the language-server requests built on top of the
// synchronization core: formatting, rename, document links, workspace file
// operations, and semantic tokens. Each wrapper carries its own timeout and
// degrades to "no contribution" when a server cannot answer in time.
package feature
