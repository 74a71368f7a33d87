package vorbis

import (
	"testing"

	"github.com/framewise-audio/demux/internal/frame"
)

func TestVorbisLongBlockUsesPreviousWindowFlagBit(t *testing.T) {
	p := New(nil, nil)
	p.id = &IDHeader{Channels: 2, SampleRate: 44100, BlockSize0: 256, BlockSize1: 2048}
	p.mt = &modeTable{modes: map[byte]byte{0: 1}, mask: 0, prevMask: 2}
	p.prevBlockSize = p.id.BlockSize0

	counters := &frame.Counters{}
	// seg[0]=0x05 -> b = seg[0]>>1 = 2; mask=0 always selects mode 0 (long);
	// b&prevMask(2) != 0 -> previous window flag set -> prevBlockSize overridden to BlockSize1
	page := &frame.OggPage{Segments: [][]byte{{0x05, 0xAA, 0xBB}}}
	if err := p.ParseOggPage(page, 2, counters); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.CodecFrames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(page.CodecFrames))
	}
	cf := page.CodecFrames[0]
	if cf.Samples != 1024 { // (2048+2048)>>2
		t.Fatalf("expected 1024 samples, got %d", cf.Samples)
	}
	h := cf.Header.(*Header)
	if h.BlockFlag != 1 || h.BlockSize != 2048 {
		t.Fatalf("expected long block of size 2048, got flag=%d size=%d", h.BlockFlag, h.BlockSize)
	}
}

func TestVorbisShortBlockCarriesPreviousBlockSizeState(t *testing.T) {
	p := New(nil, nil)
	p.id = &IDHeader{Channels: 1, SampleRate: 48000, BlockSize0: 256, BlockSize1: 2048}
	p.mt = &modeTable{modes: map[byte]byte{0: 1, 1: 0}, mask: 1, prevMask: 2}
	p.prevBlockSize = p.id.BlockSize0

	counters := &frame.Counters{}
	// seg[0]=0x03 -> b = 1; mask=1 -> mode index 1 -> block flag 0 (short)
	page := &frame.OggPage{Segments: [][]byte{{0x03}}}
	if err := p.ParseOggPage(page, 2, counters); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cf := page.CodecFrames[0]
	if cf.Samples != 128 { // (256+256)>>2, prevBlockSize carried from initial state
		t.Fatalf("expected 128 samples for short/short transition, got %d", cf.Samples)
	}
}

func TestVorbisSetupStructuralMismatchRejected(t *testing.T) {
	p := New(nil, nil)
	page := &frame.OggPage{Segments: [][]byte{[]byte("comments"), {0x00, 0x00}}}
	if err := p.ParseOggPage(page, 1, &frame.Counters{}); err != ErrSetupStructureMismatch {
		t.Fatalf("expected ErrSetupStructureMismatch, got %v", err)
	}
}
