package hashkey

import "testing"

func TestWriterDeterministic(t *testing.T) {
	a := New().Uint32(7).Uint64(42).Bool(true).String("colored").Sum()
	b := New().Uint32(7).Uint64(42).Bool(true).String("colored").Sum()
	if a != b {
		t.Errorf("same fields hashed differently: %x != %x", a, b)
	}
}

func TestWriterFieldOrderMatters(t *testing.T) {
	a := New().Uint32(1).Uint32(2).Sum()
	b := New().Uint32(2).Uint32(1).Sum()
	if a == b {
		t.Error("swapped fields produced the same key")
	}
}

func TestWriterPresenceByte(t *testing.T) {
	absent := New().Uint32(3).Bool(false).Sum()
	presentZero := New().Uint32(3).Bool(true).Uint64(0).Sum()
	if absent == presentZero {
		t.Error("absent field collides with present zero")
	}
}

func TestStringLengthPrefix(t *testing.T) {
	a := New().String("ab").String("c").Sum()
	b := New().String("a").String("bc").Sum()
	if a == b {
		t.Error("length prefix missing: concatenations collide")
	}
}

func TestString64(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		// FNV-1a 64-bit offset basis.
		{"", 0xcbf29ce484222325},
		{"a", 0xaf63dc4c8601ec8c},
	}
	for _, tt := range tests {
		if got := String64(tt.in); got != tt.want {
			t.Errorf("String64(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
