package includes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glint-lang/glint/internal/includes"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestResolve_FindsFileRelativeToEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.glint", "var x = 1\n")
	entry := filepath.Join(dir, "main.glint")

	r := includes.NewResolver(entry, nil)
	name, content, skip, err := r.Resolve(entry, "helper")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if skip {
		t.Fatal("first resolution of a file should not be skipped")
	}
	if content != "var x = 1\n" {
		t.Fatalf("unexpected content: %q", content)
	}
	if name == "" {
		t.Fatal("expected a non-empty resolved name")
	}
}

func TestResolve_SkipsIdenticalContentOnSecondInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.glint", "var x = 1\n")
	writeFile(t, dir, "b.glint", "var x = 1\n") // identical content, different path
	entry := filepath.Join(dir, "main.glint")

	r := includes.NewResolver(entry, nil)

	_, _, skip1, err := r.Resolve(entry, "a")
	if err != nil || skip1 {
		t.Fatalf("expected first include to be read, err=%v skip=%v", err, skip1)
	}

	_, _, skip2, err := r.Resolve(entry, "b")
	if err != nil {
		t.Fatalf("Resolve b: %v", err)
	}
	if !skip2 {
		t.Fatal("expected the second file with identical content to be skipped (content-hash dedup)")
	}
}

func TestResolve_DataDirFallback(t *testing.T) {
	entryDir := t.TempDir()
	dataDir := t.TempDir()
	writeFile(t, dataDir, "std.glint", "fun helper(): return 1\n")
	entry := filepath.Join(entryDir, "main.glint")

	r := includes.NewResolver(entry, nil)
	r.AddDataDir(dataDir)

	_, content, skip, err := r.Resolve(entry, "std")
	if err != nil {
		t.Fatalf("Resolve via data dir: %v", err)
	}
	if skip || content == "" {
		t.Fatalf("expected to read std.glint from the data dir, skip=%v content=%q", skip, content)
	}
}

func TestResolve_NotFoundErrors(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.glint")
	r := includes.NewResolver(entry, nil)

	if _, _, _, err := r.Resolve(entry, "missing"); err == nil {
		t.Fatal("expected an error for an include that resolves to no file")
	}
}
