package opus

import (
	"testing"

	"github.com/framewise-audio/demux/internal/frame"
)

func opusHeadPacket(channels int, inputSampleRate uint32) []byte {
	b := make([]byte, 19)
	copy(b, "OpusHead")
	b[8] = 1 // version
	b[9] = byte(channels)
	b[10], b[11] = 0, 0 // pre-skip
	b[12] = byte(inputSampleRate)
	b[13] = byte(inputSampleRate >> 8)
	b[14] = byte(inputSampleRate >> 16)
	b[15] = byte(inputSampleRate >> 24)
	// output gain, mapping family left zero
	return b
}

func TestOpusIDHeaderThenSingleFramePacket(t *testing.T) {
	p := New(nil, nil)
	counters := &frame.Counters{}

	idPage := &frame.OggPage{Segments: [][]byte{opusHeadPacket(2, 44100)}}
	if err := p.ParseOggPage(idPage, 0, counters); err != nil {
		t.Fatalf("id page: %v", err)
	}
	if p.id == nil || p.id.Channels != 2 {
		t.Fatalf("expected stored id header with 2 channels, got %+v", p.id)
	}

	tagsPage := &frame.OggPage{Segments: [][]byte{[]byte("OpusTags...")}}
	if err := p.ParseOggPage(tagsPage, 1, counters); err != nil {
		t.Fatalf("tags page: %v", err)
	}
	if len(tagsPage.CodecFrames) != 0 {
		t.Fatalf("OpusTags page must not produce frames")
	}

	// config=15 -> celt/hybrid boundary per table, frameSizeMs=20, code=0 -> 1 frame
	toc := byte(15<<3) | (1 << 2) | 0
	audioPage := &frame.OggPage{Segments: [][]byte{{toc}}}
	if err := p.ParseOggPage(audioPage, 2, counters); err != nil {
		t.Fatalf("audio page: %v", err)
	}
	if len(audioPage.CodecFrames) != 1 {
		t.Fatalf("expected 1 codec frame, got %d", len(audioPage.CodecFrames))
	}
	cf := audioPage.CodecFrames[0]
	if cf.Samples != 960 {
		t.Fatalf("expected 960 samples, got %d", cf.Samples)
	}
	if cf.Duration != 20 {
		t.Fatalf("expected 20ms duration, got %v", cf.Duration)
	}
	h := cf.Header.(*Header)
	if !h.Stereo {
		t.Fatalf("expected stereo flag set from TOC byte")
	}
	if h.SampleRate() != 48000 {
		t.Fatalf("opus sample rate must always be 48000, got %d", h.SampleRate())
	}
}

func TestOpusMultiFramePacketAccumulatesSamples(t *testing.T) {
	p := New(nil, nil)
	counters := &frame.Counters{}
	_ = p.ParseOggPage(&frame.OggPage{Segments: [][]byte{opusHeadPacket(1, 48000)}}, 0, counters)

	// config=1 -> 20ms frames, mono, code=3 with frame-count byte requesting 2 frames
	toc := byte(1<<3) | 0<<2 | 3
	fc := byte(2)
	page := &frame.OggPage{Segments: [][]byte{{toc, fc}}}
	if err := p.ParseOggPage(page, 2, counters); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.CodecFrames) != 1 {
		t.Fatalf("expected 1 codec frame (one Ogg segment = one packet), got %d", len(page.CodecFrames))
	}
	cf := page.CodecFrames[0]
	if cf.Samples != 1920 { // 2 frames * 20ms * 48 samples/ms
		t.Fatalf("expected 1920 samples, got %d", cf.Samples)
	}
	if cf.Duration != 40 {
		t.Fatalf("expected 40ms duration, got %v", cf.Duration)
	}
}
