package vidra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeThenDecodeImageFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")

	fb := SolidFrameBuffer(6, 4, Color{R: 0.25, G: 0.5, B: 0.75, A: 1})
	if err := EncodeImageFile(path, fb); err != nil {
		t.Fatalf("EncodeImageFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected a file at %s: %v", path, err)
	}

	decoded, err := DecodeImageFile(path)
	if err != nil {
		t.Fatalf("DecodeImageFile: %v", err)
	}
	if decoded.Width != fb.Width || decoded.Height != fb.Height {
		t.Fatalf("expected %dx%d, got %dx%d", fb.Width, fb.Height, decoded.Width, decoded.Height)
	}
	got := decoded.At(0, 0)
	want := fb.At(0, 0)
	if got.R != want.R || got.G != want.G || got.B != want.B || got.A != want.A {
		t.Fatalf("expected round-tripped pixel %+v, got %+v", want, got)
	}
}

func TestDecodeImageFileUnknownExtensionFallsBackToSniffing(t *testing.T) {
	dir := t.TempDir()
	// Written with a .dat extension so DecodeImageFile must fall through
	// to image.Decode's content-based format sniffing.
	path := filepath.Join(dir, "frame.dat")
	fb := SolidFrameBuffer(3, 3, Color{R: 1, A: 1})
	if err := EncodeImageFile(path, fb); err != nil {
		t.Fatalf("EncodeImageFile: %v", err)
	}
	if _, err := DecodeImageFile(path); err != nil {
		t.Fatalf("expected content-sniffed decode to succeed: %v", err)
	}
}
