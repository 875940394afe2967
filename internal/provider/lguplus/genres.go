package lguplus

import (
	"encoding/json"
	"strings"
	"sync"
)

// GenreLookup maps channel genre codes to names. It is built once from the
// first channel listing that carries a genre list and is read-only afterwards.
type GenreLookup struct {
	mu          sync.RWMutex
	initialized bool
	names       map[string]string
}

// NewGenreLookup creates an uninitialized lookup
func NewGenreLookup() *GenreLookup {
	return &GenreLookup{names: make(map[string]string)}
}

// EnsureInitialized builds the lookup from a raw genre list unless it has
// already been built. Entries that are not objects or lack a code or name are
// skipped. It returns true only for the call that built the table.
//
// A missing or non-list genre field leaves the lookup uninitialized so a later
// listing can still build it.
func (g *GenreLookup) EnsureInitialized(raw json.RawMessage) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return false, nil
	}

	items, err := decodeList(fieldGenreList, raw)
	if err != nil {
		return false, err
	}
	if items == nil {
		return false, &SchemaError{Field: fieldGenreList, Reason: "missing"}
	}

	for _, item := range items {
		var rg rawGenre
		if !decodeRecord(item, &rg) {
			continue
		}
		code := strings.TrimSpace(rg.Code.String())
		if code == "" || !rg.Name.Present() {
			continue
		}
		g.names[code] = rg.Name.String()
	}
	g.initialized = true
	return true, nil
}

// Initialized reports whether the table has been built
func (g *GenreLookup) Initialized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.initialized
}

// Lookup returns the genre name for code
func (g *GenreLookup) Lookup(code string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	name, ok := g.names[code]
	return name, ok
}

// Len returns the number of known genres
func (g *GenreLookup) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names)
}

// Category applies the channel category policy: the genre name, a
// "장르코드:<code>" placeholder for unknown codes, or "" when there is no code.
func (g *GenreLookup) Category(code string) string {
	if code == "" {
		return ""
	}
	if name, ok := g.Lookup(code); ok {
		return name
	}
	return unknownGenrePrefix + code
}
