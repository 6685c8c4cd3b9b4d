package lspconn

import (
	"encoding/json"
	"reflect"

	"go.lsp.dev/protocol"
)

// SyncSupport is the negotiated document-sync contract for one connection.
// The wire shape of textDocumentSync is either a bare sync kind number or a
// structured options object; this type is the explicit union of both cases,
// resolved once at connection time and immutable afterwards.
type SyncSupport struct {
	// Kind is how edits are reported: none, full text, or incremental ranges.
	Kind protocol.TextDocumentSyncKind

	// WillSaveWaitUntil reports whether the server wants a chance to supply
	// edits before a save completes.
	WillSaveWaitUntil bool

	// Save reports whether the server wants didSave notifications at all.
	Save bool

	// SaveIncludeText reports whether didSave should carry the full text.
	SaveIncludeText bool
}

// Capabilities is the parsed view of a server's initialize response.
type Capabilities struct {
	Sync SyncSupport
	Raw  protocol.ServerCapabilities
}

// Filter selects connections by capability. The zero filter matches nothing;
// use Any to match everything.
type Filter func(Capabilities) bool

// Any matches every connection.
func Any(Capabilities) bool { return true }

// SupportsFormatting matches servers providing textDocument/formatting.
func SupportsFormatting(c Capabilities) bool {
	return isProvider(c.Raw.DocumentFormattingProvider)
}

// SupportsRename matches servers providing textDocument/rename.
func SupportsRename(c Capabilities) bool {
	return isProvider(c.Raw.RenameProvider)
}

// SupportsDocumentLink matches servers providing textDocument/documentLink.
func SupportsDocumentLink(c Capabilities) bool {
	return isProvider(c.Raw.DocumentLinkProvider)
}

// SupportsSemanticTokens matches servers providing semantic tokens.
func SupportsSemanticTokens(c Capabilities) bool {
	return isProvider(c.Raw.SemanticTokensProvider)
}

// isProvider interprets the bool-or-options shape LSP uses for most provider
// capabilities: absent and false mean unsupported, anything else supported.
func isProvider(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		return !rv.IsNil()
	}
	return true
}

// ParseCapabilities resolves the raw initialize result into the negotiated
// view. A server that omits textDocumentSync gets full sync with didSave, the
// most conservative interpretation that keeps replicas converging.
func ParseCapabilities(raw protocol.ServerCapabilities) Capabilities {
	return Capabilities{
		Sync: parseSyncSupport(raw.TextDocumentSync),
		Raw:  raw,
	}
}

func parseSyncSupport(v any) SyncSupport {
	sup := SyncSupport{Kind: protocol.TextDocumentSyncKindFull, Save: true}
	if v == nil {
		return sup
	}

	switch t := v.(type) {
	case protocol.TextDocumentSyncKind:
		sup.Kind = t
		return sup
	case float64: // bare kind number straight from JSON
		sup.Kind = protocol.TextDocumentSyncKind(t)
		return sup
	case protocol.TextDocumentSyncOptions:
		return syncFromOptions(&t)
	case *protocol.TextDocumentSyncOptions:
		if t == nil {
			return sup
		}
		return syncFromOptions(t)
	case map[string]any: // options object straight from JSON
		raw, err := json.Marshal(t)
		if err != nil {
			return sup
		}
		var opts protocol.TextDocumentSyncOptions
		if err := json.Unmarshal(raw, &opts); err != nil {
			return sup
		}
		return syncFromOptions(&opts)
	}
	return sup
}

func syncFromOptions(opts *protocol.TextDocumentSyncOptions) SyncSupport {
	sup := SyncSupport{
		Kind:              opts.Change,
		WillSaveWaitUntil: opts.WillSaveWaitUntil,
	}
	if opts.Save != nil {
		sup.Save = true
		sup.SaveIncludeText = opts.Save.IncludeText
	}
	return sup
}
