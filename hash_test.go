package vidra

import "testing"

func TestContentHashIsStableAcrossEquivalentBuffers(t *testing.T) {
	a := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	b := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	if ContentHash(a) != ContentHash(b) {
		t.Fatalf("expected identical buffers to hash identically")
	}
}

func TestContentHashDiffersOnPixelChange(t *testing.T) {
	a := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	b := a.Clone()
	b.Set(0, 0, Color{G: 1, A: 1})
	if ContentHash(a) == ContentHash(b) {
		t.Fatalf("expected a single pixel change to change the hash")
	}
}

func TestContentHashDiffersOnDimensions(t *testing.T) {
	a := SolidFrameBuffer(4, 4, Color{R: 1, A: 1})
	b := SolidFrameBuffer(8, 4, Color{R: 1, A: 1})
	if ContentHash(a) == ContentHash(b) {
		t.Fatalf("expected differing dimensions to change the hash even with identical fill")
	}
}

func TestSequenceHashIsOrderSensitive(t *testing.T) {
	h1 := SequenceHash([]string{"aaaa", "bbbb"})
	h2 := SequenceHash([]string{"bbbb", "aaaa"})
	if h1 == h2 {
		t.Fatalf("expected frame order to affect the sequence hash")
	}
}

func TestSequenceHashIsDeterministic(t *testing.T) {
	frames := []string{"aaaa", "bbbb", "cccc"}
	if SequenceHash(frames) != SequenceHash(frames) {
		t.Fatalf("expected the same input to hash identically")
	}
}
