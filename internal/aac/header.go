// ABOUTME: AAC ADTS header decoding (7 or 9 byte fixed+variable header)
// ABOUTME: Ported bit-for-bit from the ADTS layout documented in the go-aac syntax package
package aac

import (
	"fmt"

	"github.com/framewise-audio/demux/internal/bitutil"
	"github.com/framewise-audio/demux/internal/frame"
)

var sampleRateTable = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0, // 13-15 reserved/forbidden
}

// channelConfigTable maps the 3-bit channel_configuration field to a
// channel count and a human-readable mode name.
var channelConfigTable = [8]struct {
	channels int
	mode     string
}{
	{0, "defined in PCE"},
	{1, "mono (center)"},
	{2, "stereo (left, right)"},
	{3, "3 channels"},
	{4, "4 channels"},
	{5, "5 channels"},
	{6, "6 channels"},
	{8, "8 channels"},
}

// Header is the decoded ADTS frame header.
type Header struct {
	ID               uint8 // 0=MPEG-4, 1=MPEG-2
	Profile          uint8 // object type - 1
	SFIndex          uint8
	PrivateBit       bool
	ChannelConfig    uint8
	Original         bool
	Home             bool
	CopyrightIDBit   bool
	CopyrightIDStart bool
	FrameLength      int
	BufferFullness   int
	NumberAACFrames  uint8
	ProtectionAbsent bool

	Length  int
	Samples int

	samplerate int
	bitrate    int
}

var _ frame.Header = (*Header)(nil)

func (h *Header) HeaderLength() int   { return h.Length }
func (h *Header) SampleRate() int     { return h.samplerate }
func (h *Header) Channels() int       { return channelConfigTable[h.ChannelConfig].channels }
func (h *Header) BitDepth() int       { return 16 }
func (h *Header) ChannelMode() string { return channelConfigTable[h.ChannelConfig].mode }
func (h *Header) Bitrate() int        { return h.bitrate }
func (h *Header) SetBitrate(b int)    { h.bitrate = b }

// BufferFullnessLabel returns "VBR" for the 0x7FF sentinel value, otherwise
// the numeric fullness.
func (h *Header) BufferFullnessLabel() string {
	if h.BufferFullness == 0x7FF {
		return "VBR"
	}
	return fmt.Sprintf("%d", h.BufferFullness)
}

// UpdateFields is the cache's codec-change projection for AAC.
type UpdateFields struct {
	SampleRate int
	Channels   int
	Profile    uint8
}

func (h *Header) updateFields() UpdateFields {
	return UpdateFields{SampleRate: h.samplerate, Channels: h.Channels(), Profile: h.Profile}
}

// Key returns the cacheable key for h, excluding frameLength and
// bufferFullness which vary frame to frame without implying a codec
// change.
func (h *Header) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d-%t-%t", h.ID, h.Profile, h.SFIndex, h.ChannelConfig, h.Original, h.Home)
}

// parseHeader decodes an ADTS header from the front of data. The original,
// home, copyright_identification_bit and copyright_identification_start
// flags are read as four sequential single bits (bits 5, 4, 3 and 2 of
// byte 3), so isHome and copyrightIdBit never share a bit position.
func parseHeader(data []byte) (*Header, bool) {
	if len(data) < 7 {
		return nil, false
	}
	r := bitutil.NewReader(data[:7])

	sync, _ := r.Bits(12)
	if sync != 0xFFF {
		return nil, false
	}
	id, _ := r.Bits(1)
	layer, _ := r.Bits(2)
	if layer != 0 {
		return nil, false
	}
	protAbsent, _ := r.Bits(1)
	profile, _ := r.Bits(2)
	sfIdx, _ := r.Bits(4)
	if sfIdx == 15 {
		return nil, false
	}
	private, _ := r.Bits(1)
	chanConfig, _ := r.Bits(3)
	original, _ := r.Bits(1)
	home, _ := r.Bits(1)
	copyrightIDBit, _ := r.Bits(1)
	copyrightIDStart, _ := r.Bits(1)
	frameLen, _ := r.Bits(13)
	bufferFullness, _ := r.Bits(11)
	numFrames, _ := r.Bits(2)

	if frameLen == 0 {
		return nil, false
	}

	headerBytes := 7
	if protAbsent == 0 {
		headerBytes = 9
	}
	if int(frameLen) < headerBytes {
		return nil, false
	}

	sr := sampleRateTable[sfIdx]
	if sr == 0 {
		return nil, false
	}

	h := &Header{
		ID:               uint8(id),
		Profile:          uint8(profile),
		SFIndex:          uint8(sfIdx),
		PrivateBit:       private == 1,
		ChannelConfig:    uint8(chanConfig),
		Original:         original == 1,
		Home:             home == 1,
		CopyrightIDBit:   copyrightIDBit == 1,
		CopyrightIDStart: copyrightIDStart == 1,
		FrameLength:      int(frameLen),
		BufferFullness:   int(bufferFullness),
		NumberAACFrames:  uint8(numFrames),
		ProtectionAbsent: protAbsent == 1,
		Length:           int(frameLen),
		Samples:          1024,
		samplerate:       sr,
	}
	return h, true
}
