package modcache_test

import (
	"testing"

	"github.com/nicholastmosher/flipper/modcache"
)

func TestInsertAndFind(t *testing.T) {
	c := modcache.New()
	c.Insert(modcache.Module{Name: "led", Index: 3})

	m, ok := c.Find("led")
	if !ok {
		t.Fatal("expected led to be found")
	}
	if m.Index != 3 {
		t.Errorf("index = %d, want 3", m.Index)
	}

	if _, ok := c.Find("missing"); ok {
		t.Fatal("expected missing to be absent")
	}
}

func TestUnload(t *testing.T) {
	c := modcache.New()
	c.Insert(modcache.Module{Name: "led", Index: 3})

	if !c.Unload("led") {
		t.Fatal("expected Unload to report the entry was present")
	}
	if _, ok := c.Find("led"); ok {
		t.Fatal("expected led to be gone after Unload")
	}
	if c.Unload("led") {
		t.Fatal("expected a second Unload to report absence")
	}
}

func TestLenAndNames(t *testing.T) {
	c := modcache.New()
	if c.Len() != 0 {
		t.Fatalf("len = %d, want 0", c.Len())
	}
	c.Insert(modcache.Module{Name: "led", Index: 0})
	c.Insert(modcache.Module{Name: "uart0", Index: 1})
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
	names := c.Names()
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}
}

func TestInsertOverwritesExisting(t *testing.T) {
	c := modcache.New()
	c.Insert(modcache.Module{Name: "led", Index: 3, Version: 1})
	c.Insert(modcache.Module{Name: "led", Index: 3, Version: 2})
	m, _ := c.Find("led")
	if m.Version != 2 {
		t.Errorf("version = %d, want 2 after re-insert", m.Version)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1 (re-insert should not duplicate)", c.Len())
	}
}
