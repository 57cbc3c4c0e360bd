package cache

import "testing"

func TestLRUEviction(t *testing.T) {
	c := New[string, int]("test", 2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a")
	if evicted := c.Add("c", 3); !evicted {
		t.Error("expected eviction when adding beyond capacity")
	}

	if _, ok := c.Peek("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("expected a=1, got %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestLRUDefaultSize(t *testing.T) {
	c := New[int, int]("default", 0)
	for i := 0; i < DefaultSize+10; i++ {
		c.Add(i, i)
	}
	if c.Len() != DefaultSize {
		t.Errorf("expected %d entries, got %d", DefaultSize, c.Len())
	}
	if got := c.Stats().Evictions; got != 10 {
		t.Errorf("expected 10 evictions, got %d", got)
	}
}

func TestLRUStats(t *testing.T) {
	c := New[string, string]("stats", 4)
	c.Add("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	s := c.Stats()
	if s.Name != "stats" || s.Entries != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("expected 2 hits 1 miss, got %d/%d", s.Hits, s.Misses)
	}
	if r := s.HitRate(); r < 0.66 || r > 0.67 {
		t.Errorf("expected hit rate 2/3, got %f", r)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("empty stats hit rate should be 0")
	}
}

func TestLRUResizeAndRemove(t *testing.T) {
	c := New[int, int]("resize", 4)
	for i := 0; i < 4; i++ {
		c.Add(i, i)
	}
	c.Resize(2)
	if c.Len() != 2 {
		t.Errorf("expected 2 entries after resize, got %d", c.Len())
	}
	if !c.Remove(3) {
		t.Error("expected Remove to report existing key")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, got %d", c.Len())
	}
}
