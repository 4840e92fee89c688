package natives_test

import (
	"testing"

	"github.com/glint-lang/glint/internal/natives"
)

func TestSQLiteRegistry_SeedsAndQueries(t *testing.T) {
	reg, err := natives.OpenSQLiteRegistry(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteRegistry: %v", err)
	}
	defer reg.Close()

	fns, ok := reg.FindNative("append")
	if !ok || len(fns) != 1 || fns[0].Arity() != 2 {
		t.Fatalf("expected one 2-arg append overload seeded from the built-in table, got %v (ok=%v)", fns, ok)
	}

	// Second lookup should be served from the in-memory cache; assert
	// it still returns the same shape rather than re-querying wrongly.
	again, ok := reg.FindNative("append")
	if !ok || len(again) != len(fns) {
		t.Fatalf("expected a stable cached result, got %v", again)
	}

	if _, ok := reg.FindNative("nonexistent"); ok {
		t.Fatal("did not expect to find an unseeded native")
	}
}
