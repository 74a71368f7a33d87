package vorbis

import "testing"

// This buffer was hand-traced against the ReverseBitReader semantics (each
// byte's bits are read LSB-first, byte order back to front) to encode: a
// framing bit, mapping number 0, three zero window/transform groups, and a
// 7-bit modeBits field of 1 (block flag set) - a single-mode setup tail.
func TestBuildModeTableSingleMode(t *testing.T) {
	setup := []byte{0x80, 0x00, 0x00, 0x00, 0x01}

	mt, ok := buildModeTable(setup)
	if !ok {
		t.Fatalf("expected mode table to build successfully")
	}
	if got := mt.modes[0]; got != 1 {
		t.Fatalf("expected mode 0 block flag 1, got %d", got)
	}
	if mt.mask != 0 || mt.prevMask != 2 {
		t.Fatalf("expected mask=0 prevMask=2, got mask=%d prevMask=%d", mt.mask, mt.prevMask)
	}
}

func TestBuildModeTableEmptySetupFails(t *testing.T) {
	if _, ok := buildModeTable(nil); ok {
		t.Fatalf("expected empty setup packet to fail")
	}
}

func TestBuildModeTableNoFramingBitFails(t *testing.T) {
	if _, ok := buildModeTable([]byte{0x00, 0x00}); ok {
		t.Fatalf("expected all-zero packet (no framing bit) to fail")
	}
}
