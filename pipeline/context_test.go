// ABOUTME: Tests for the per-run context: typed getters, snapshots, and merge semantics.
// ABOUTME: Includes a concurrent read/merge check for the race detector.
package pipeline

import (
	"fmt"
	"sync"
	"testing"
)

func TestContextGetters(t *testing.T) {
	c := NewContext(map[string]any{"prompt": "fox", "passed": true, "n": 3})

	if got := c.GetString("prompt", ""); got != "fox" {
		t.Errorf("GetString = %q", got)
	}
	if got := c.GetString("n", "dflt"); got != "dflt" {
		t.Errorf("non-string should fall back, got %q", got)
	}
	if got := c.GetString("missing", "dflt"); got != "dflt" {
		t.Errorf("missing should fall back, got %q", got)
	}
	if !c.GetBool("passed", false) {
		t.Error("GetBool(passed) = false")
	}
	if c.GetBool("prompt", false) {
		t.Error("non-bool should fall back")
	}
	if _, ok := c.Lookup("missing"); ok {
		t.Error("Lookup(missing) reported present")
	}
	if c.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
	keys := c.Keys()
	if len(keys) != 3 || keys[0] != "n" || keys[2] != "prompt" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestContextSeedIsCopied(t *testing.T) {
	seed := map[string]any{"prompt": "a"}
	c := NewContext(seed)
	seed["prompt"] = "b"
	if c.GetString("prompt", "") != "a" {
		t.Error("context aliased its seed map")
	}
}

func TestContextSnapshotIsIndependent(t *testing.T) {
	c := NewContext(map[string]any{"a": 1})
	snap := c.Snapshot()
	snap["a"] = 2
	snap["b"] = 3
	if c.Get("a") != 1 || c.Has("b") {
		t.Error("snapshot mutation leaked into context")
	}
}

func TestContextMergeOverwrites(t *testing.T) {
	c := NewContext(map[string]any{"a": 1, "b": 1})
	c.merge(map[string]any{"b": 2, "c": 3})
	if c.Get("a") != 1 || c.Get("b") != 2 || c.Get("c") != 3 {
		t.Errorf("unexpected values %v", c.Snapshot())
	}
}

func TestContextConcurrentAccess(t *testing.T) {
	c := NewContext(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.merge(map[string]any{fmt.Sprintf("k%d", i): i})
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
			_ = c.Keys()
		}()
	}
	wg.Wait()
	if len(c.Keys()) != 10 {
		t.Errorf("expected 10 keys, got %d", len(c.Keys()))
	}
}
