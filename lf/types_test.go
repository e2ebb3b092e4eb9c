package lf_test

import (
	"testing"

	"github.com/nicholastmosher/flipper/lf"
)

func TestSizeKnownTypes(t *testing.T) {
	cases := []struct {
		typ  lf.Type
		want int
	}{
		{lf.Uint8, 1},
		{lf.Uint16, 2},
		{lf.Uint32, 4},
		{lf.Uint64, 8},
		{lf.Int8, 1},
		{lf.Int16, 2},
		{lf.Int32, 4},
		{lf.Int64, 8},
		{lf.Ptr, 8},
		{lf.Int, 8},
		{lf.Void, 8},
	}
	for _, c := range cases {
		got, err := c.typ.Size()
		if err != nil {
			t.Fatalf("Size(%s) returned unexpected error: %v", c.typ, err)
		}
		if got != c.want {
			t.Errorf("Size(%s) = %d, want %d", c.typ, got, c.want)
		}
	}
}

func TestSizeIllegalType(t *testing.T) {
	bogus := lf.Type(5) // 5 is unused in the tag table
	if _, err := bogus.Size(); err == nil {
		t.Fatal("expected an error for an illegal type tag")
	}
	if bogus.Valid() {
		t.Fatal("expected Valid() to be false for an illegal type tag")
	}
}

func TestMaxTypeFitsInNibble(t *testing.T) {
	if lf.MaxType > 15 {
		t.Fatalf("MaxType = %d, must fit in 4 bits", lf.MaxType)
	}
}
