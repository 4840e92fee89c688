// Package includes resolves `include` directives (spec §4.B "include"
// and §4.A "include(path)") to source text, backing the lexer's
// include-stack push, per SPEC_FULL.md §4.K. Grounded structurally on
// the teacher's internal/modules/loader.go path-resolution and cycle-
// bookkeeping idioms, adapted from a whole-program module graph to a
// push/pop include-stack the lexer drives directly.
package includes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/glint-lang/glint/internal/cache"
)

// Resolver implements lexer.IncludeResolver: it turns an include path
// (a quoted filename or a dotted identifier path) into source text,
// relative to the entry file's directory and any configured data
// directories, per spec §4.B.
type Resolver struct {
	entryDir  string
	dataDirs  []string
	parseCache cache.ParseCache

	includedHashes map[[32]byte]bool
}

// NewResolver returns a resolver rooted at entryFile's directory. The
// parseCache may be nil, in which case only the in-process content-
// hash dedup applies.
func NewResolver(entryFile string, parseCache cache.ParseCache) *Resolver {
	return &Resolver{
		entryDir:       filepath.Dir(entryFile),
		parseCache:     parseCache,
		includedHashes: make(map[[32]byte]bool),
	}
}

// AddDataDir registers an additional search directory, used by the
// `include from "path"` directive form (§4.B).
func (r *Resolver) AddDataDir(path string) {
	r.dataDirs = append(r.dataDirs, path)
}

// Resolve finds the file referenced by path (searched relative to the
// entry file's directory, then each data directory; fromFile is not
// consulted), reads it, and returns its content. If an exact-content
// repeat is detected (by blake2b-256 hash, possibly reached via a
// different path string), skip is true and content is empty: the lexer
// then pushes no include frame and keeps lexing the current buffer
// rather than re-lex identical text, preventing diamond-shaped include
// graphs from duplicating declarations (SPEC_FULL.md §4.K).
func (r *Resolver) Resolve(fromFile, path string) (name string, content string, skip bool, err error) {
	resolved, err := r.find(path)
	if err != nil {
		return "", "", false, err
	}

	if r.parseCache != nil {
		data, rerr := os.ReadFile(resolved)
		if rerr != nil {
			return "", "", false, fmt.Errorf("read include %q: %w", resolved, rerr)
		}
		hash := blake2b.Sum256(data)
		seen, cerr := r.parseCache.Seen(cache.Key{Path: resolved, Hash: hash})
		if cerr == nil && seen {
			return resolved, "", true, nil
		}
		if r.includedHashes[hash] {
			return resolved, "", true, nil
		}
		r.includedHashes[hash] = true
		if cerr == nil {
			_ = r.parseCache.Record(cache.Key{Path: resolved, Hash: hash})
		}
		return resolved, string(data), false, nil
	}

	data, rerr := os.ReadFile(resolved)
	if rerr != nil {
		return "", "", false, fmt.Errorf("read include %q: %w", resolved, rerr)
	}
	hash := blake2b.Sum256(data)
	if r.includedHashes[hash] {
		return resolved, "", true, nil
	}
	r.includedHashes[hash] = true
	return resolved, string(data), false, nil
}

// find resolves a bare path or a dotted identifier path (e.g.
// `std.strings`) to a concrete `.glint` file, searching the entry
// file's directory first and then each configured data directory.
func (r *Resolver) find(path string) (string, error) {
	candidate := path
	switch {
	case strings.HasSuffix(candidate, ".glint"):
		// already a concrete file path
	case strings.Contains(candidate, "."):
		candidate = strings.ReplaceAll(candidate, ".", string(filepath.Separator)) + ".glint"
	default:
		candidate += ".glint"
	}

	search := append([]string{r.entryDir}, r.dataDirs...)
	for _, dir := range search {
		full := filepath.Join(dir, candidate)
		if _, err := os.Stat(full); err == nil {
			return full, nil
		}
	}
	return "", fmt.Errorf("include %q not found in %v", path, search)
}
