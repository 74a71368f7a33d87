package oggflac

import (
	"testing"

	"github.com/framewise-audio/demux/internal/bitutil"
	"github.com/framewise-audio/demux/internal/frame"
)

// buildFrame assembles a self-consistent native FLAC frame: fixed 32-bit
// header word, its own CRC-8, a body, and a trailing CRC-16 footer - mirrors
// internal/flacframe's test fixture builder, since Ogg-FLAC frames use the
// identical wire format, just delimited by the Ogg segment instead of a
// following sync word.
func buildFrame(blockSizeCode, sampleRateCode, chanAssign, sampleSizeCode uint32, frameNumber byte, body []byte) []byte {
	word := uint32(0x3FFE)<<18 | blockSizeCode<<12 | sampleRateCode<<8 | chanAssign<<4 | sampleSizeCode<<1
	header := []byte{
		byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word),
		frameNumber,
	}
	crc8 := bitutil.CRC8(0, header)
	header = append(header, crc8)

	frameBytes := append(append([]byte(nil), header...), body...)
	crc16 := bitutil.FLACCRC16(frameBytes)
	frameBytes = append(frameBytes, byte(crc16>>8), byte(crc16))
	return frameBytes
}

func streamInfoPage() []byte {
	b := make([]byte, streamInfoOffset+38)
	b[0] = 0x7F
	copy(b[1:5], "FLAC")
	b[5], b[6] = 1, 0
	b[7], b[8] = 0, 1
	copy(b[9:13], "fLaC")
	return b
}

func TestOggFLACCapturesStreamInfoAndDecodesFrame(t *testing.T) {
	p := New(nil, nil)
	counters := &frame.Counters{}

	idPage := &frame.OggPage{Segments: [][]byte{streamInfoPage()}}
	if err := p.ParseOggPage(idPage, 0, counters); err != nil {
		t.Fatalf("id page: %v", err)
	}
	if len(p.StreamInfo()) != 38 {
		t.Fatalf("expected 38-byte STREAMINFO captured, got %d bytes", len(p.StreamInfo()))
	}

	commentsPage := &frame.OggPage{Segments: [][]byte{[]byte("vorbis comments")}}
	if err := p.ParseOggPage(commentsPage, 1, counters); err != nil {
		t.Fatalf("comments page: %v", err)
	}

	body := make([]byte, 40)
	for i := range body {
		body[i] = byte(i * 7)
	}
	// blockSizeCode=4 (2304), sampleRateCode=9 (44100), chanAssign=1 (2ch), sampleSizeCode=4 (16-bit)
	seg := buildFrame(4, 9, 1, 4, 0, body)

	audioPage := &frame.OggPage{Segments: [][]byte{seg}}
	if err := p.ParseOggPage(audioPage, 2, counters); err != nil {
		t.Fatalf("audio page: %v", err)
	}
	if len(audioPage.CodecFrames) != 1 {
		t.Fatalf("expected 1 codec frame, got %d", len(audioPage.CodecFrames))
	}
	cf := audioPage.CodecFrames[0]
	if len(cf.Data) != len(seg) {
		t.Fatalf("expected frame data to match full segment length %d, got %d", len(seg), len(cf.Data))
	}
	if cf.Header.Channels() != 2 {
		t.Fatalf("expected 2 channels, got %d", cf.Header.Channels())
	}
}

func TestOggFLACSkipsNonFrameSegments(t *testing.T) {
	p := New(nil, nil)
	counters := &frame.Counters{}
	page := &frame.OggPage{Segments: [][]byte{{0x00, 0x01, 0x02}}}
	if err := p.ParseOggPage(page, 2, counters); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(page.CodecFrames) != 0 {
		t.Fatalf("expected segment not starting with 0xFF to be skipped")
	}
}
