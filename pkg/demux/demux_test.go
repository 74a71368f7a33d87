package demux

import (
	"encoding/binary"
	"testing"

	"github.com/framewise-audio/demux/internal/bitutil"
)

func TestNewRejectsUnsupportedMime(t *testing.T) {
	if _, err := New("text/plain", Options{}); err == nil {
		t.Fatalf("expected an error for an unsupported mime")
	}
}

func TestCodecAccessorIsEmptyUntilIdentified(t *testing.T) {
	d, err := New("audio/ogg", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Codec() != "" {
		t.Fatalf(`expected codec "" before identification, got %q`, d.Codec())
	}
}

// buildMPEGFrame bit-packs a classic MPEG-1 Layer III header (128kbps,
// 44100Hz, stereo, no padding) followed by a zero-filled body of the
// derived frame length.
func buildMPEGFrame() []byte {
	// version=3 (MPEG1), layer=1 (III), protection=1 (no CRC), bitrateIdx=9 (128kbps),
	// srIdx=0 (44100), padding=0, chMode=0 (stereo)
	word := uint32(0x7FF)<<21 | uint32(3)<<19 | uint32(1)<<17 | uint32(1)<<16 |
		uint32(9)<<12 | uint32(0)<<10 | uint32(0)<<9 | uint32(0)<<6
	header := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
	const frameLen = 417 // floor(125*128*1152/44100) + 0
	frame := make([]byte, frameLen)
	copy(frame, header)
	return frame
}

func TestDemuxMPEGParseAllProducesThreeFrames(t *testing.T) {
	data := append(append(append([]byte{}, buildMPEGFrame()...), buildMPEGFrame()...), buildMPEGFrame()...)

	d, err := New("audio/mpeg", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames, err := d.ParseAll(data)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for _, f := range frames {
		cf, ok := f.(*CodecFrame)
		if !ok {
			t.Fatalf("expected *CodecFrame emissions for audio/mpeg, got %T", f)
		}
		if len(cf.Data) != 417 {
			t.Fatalf("expected 417-byte frames, got %d", len(cf.Data))
		}
	}
}

func TestDemuxChunkingInvarianceForMPEG(t *testing.T) {
	data := append(append(append([]byte{}, buildMPEGFrame()...), buildMPEGFrame()...), buildMPEGFrame()...)

	whole, err := func() ([]Frame, error) {
		d, err := New("audio/mpeg", Options{})
		if err != nil {
			return nil, err
		}
		return d.ParseAll(data)
	}()
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	d, err := New("audio/mpeg", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var chunked []Frame
	for i := 0; i < len(data); i += 100 {
		end := i + 100
		if end > len(data) {
			end = len(data)
		}
		fr, err := d.ParseChunk(data[i:end])
		if err != nil {
			t.Fatalf("ParseChunk: %v", err)
		}
		chunked = append(chunked, fr...)
	}
	rest, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	chunked = append(chunked, rest...)

	if len(chunked) != len(whole) {
		t.Fatalf("chunking-invariance violated: %d frames chunked vs %d whole", len(chunked), len(whole))
	}
	for i := range chunked {
		a := chunked[i].(*CodecFrame)
		b := whole[i].(*CodecFrame)
		if string(a.Data) != string(b.Data) {
			t.Fatalf("frame %d data mismatch between chunked and whole delivery", i)
		}
	}
}

func segmentTableFor(seg []byte) []byte {
	var table []byte
	n := len(seg)
	for n >= 255 {
		table = append(table, 255)
		n -= 255
	}
	table = append(table, byte(n))
	return table
}

func buildOggPage(headerType byte, granule int64, serial, seq uint32, segments [][]byte) []byte {
	var segTable, payload []byte
	for _, seg := range segments {
		segTable = append(segTable, segmentTableFor(seg)...)
		payload = append(payload, seg...)
	}
	header := make([]byte, 27+len(segTable))
	copy(header[0:4], "OggS")
	header[5] = headerType
	binary.LittleEndian.PutUint64(header[6:14], uint64(granule))
	binary.LittleEndian.PutUint32(header[14:18], serial)
	binary.LittleEndian.PutUint32(header[18:22], seq)
	header[26] = byte(len(segTable))
	copy(header[27:], segTable)

	page := append(header, payload...)
	crc := bitutil.OggCRC32(0, page)
	binary.LittleEndian.PutUint32(page[22:26], crc)
	return page
}

func opusHeadPacket(channels int, sampleRate uint32) []byte {
	b := make([]byte, 19)
	copy(b, "OpusHead")
	b[8] = 1
	b[9] = byte(channels)
	binary.LittleEndian.PutUint32(b[12:16], sampleRate)
	return b
}

// TestDemuxOggOpusEndToEnd mirrors the spec's Ogg-Opus scenario: an id page,
// an ignored OpusTags page, and one audio page whose TOC byte (0x78 ->
// config 15, 20ms frames, code 0 -> 1 frame) yields exactly 960 samples.
func TestDemuxOggOpusEndToEnd(t *testing.T) {
	page0 := buildOggPage(0x2, 0, 1, 0, [][]byte{opusHeadPacket(1, 48000)})
	page1 := buildOggPage(0x0, 0, 1, 1, [][]byte{[]byte("OpusTags....")})
	page2 := buildOggPage(0x0, 960, 1, 2, [][]byte{{0x78}})

	data := append(append(append([]byte{}, page0...), page1...), page2...)

	var identified string
	d, err := New("audio/ogg", Options{OnCodec: func(tag string) { identified = tag }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frames, err := d.ParseAll(data)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if identified != "opus" {
		t.Fatalf(`expected onCodec("opus"), got %q`, identified)
	}
	if d.Codec() != "opus" {
		t.Fatalf(`expected Codec()=="opus", got %q`, d.Codec())
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 Ogg pages emitted, got %d", len(frames))
	}
	last, ok := frames[2].(*OggPage)
	if !ok {
		t.Fatalf("expected *OggPage emissions for audio/ogg, got %T", frames[2])
	}
	if len(last.CodecFrames) != 1 {
		t.Fatalf("expected 1 codec frame on the audio page, got %d", len(last.CodecFrames))
	}
	if last.CodecFrames[0].Samples != 960 {
		t.Fatalf("expected 960 samples, got %d", last.CodecFrames[0].Samples)
	}
}
