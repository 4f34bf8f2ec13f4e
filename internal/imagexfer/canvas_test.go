package imagexfer

import "testing"

func TestEncodeRGB565_KnownValues(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		wantLo  byte
		wantHi  byte
	}{
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0x00, 0x00, 0x00, 0x00, 0x00},
		{0x00, 0x00, 0xF8, 0x1F, 0x00}, // pure blue, max 5-bit blue field
	}
	for _, c := range cases {
		lo, hi := encodeRGB565(c.r, c.g, c.b)
		if lo != c.wantLo || hi != c.wantHi {
			t.Errorf("encodeRGB565(%#x,%#x,%#x) = (%#x,%#x), want (%#x,%#x)",
				c.r, c.g, c.b, lo, hi, c.wantLo, c.wantHi)
		}
	}
}

func TestCanvasSetAt_RoundTripsQuantized(t *testing.T) {
	c := newCanvas()
	c.Set(10, 20, 0xF8, 0xFC, 0xF8, 0x80)

	r, g, b, a := c.At(10, 20)
	if r != 0xF8 || g != 0xFC || b != 0xF8 {
		t.Errorf("unexpected quantized color: %#x %#x %#x", r, g, b)
	}
	if a != 0x80 {
		t.Errorf("expected verbatim alpha 0x80, got %#x", a)
	}
}

func TestCanvasSet_OutOfBoundsIsNoOp(t *testing.T) {
	c := newCanvas()
	c.Set(-1, 0, 1, 2, 3, 4)
	c.Set(Width, 0, 1, 2, 3, 4)
	c.Set(0, Height, 1, 2, 3, 4)

	for _, b := range c.rgb {
		if b != 0 {
			t.Fatalf("expected untouched canvas after out-of-bounds writes")
		}
	}
}

func TestCanvas_DefaultsToFullyTransparent(t *testing.T) {
	c := newCanvas()
	_, _, _, a := c.At(5, 5)
	if a != 0 {
		t.Fatalf("expected fresh canvas pixel to default to alpha 0, got %d", a)
	}
}
