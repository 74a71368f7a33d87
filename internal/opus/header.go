// ABOUTME: Opus TOC-byte decoding (RFC 6716 section 3.1) plus the stored OpusHead identification header
// ABOUTME: Opus always operates at a 48kHz internal clock regardless of the input rate OpusHead declares
package opus

import (
	"encoding/binary"
	"fmt"

	"github.com/framewise-audio/demux/internal/frame"
)

// internalSampleRate is the fixed clock Opus decodes samples at, independent
// of IDHeader.InputSampleRate.
const internalSampleRate = 48000

// IDHeader is the decoded "OpusHead" identification packet (page 0), kept
// for the lifetime of the logical stream.
type IDHeader struct {
	Version         byte
	Channels        int
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   byte
}

// ParseIDHeader decodes an OpusHead packet. It returns false if the magic or
// fixed-size prefix doesn't match.
func ParseIDHeader(data []byte) (*IDHeader, bool) {
	if len(data) < 19 || string(data[0:8]) != "OpusHead" {
		return nil, false
	}
	return &IDHeader{
		Version:         data[8],
		Channels:        int(data[9]),
		PreSkip:         binary.LittleEndian.Uint16(data[10:12]),
		InputSampleRate: binary.LittleEndian.Uint32(data[12:16]),
		OutputGain:      int16(binary.LittleEndian.Uint16(data[16:18])),
		MappingFamily:   data[18],
	}, true
}

// Header is the decoded per-packet Opus frame header: the stored
// identification fields plus the TOC-byte decode of one packet.
type Header struct {
	id *IDHeader

	Config      byte
	Mode        string
	Bandwidth   string
	FrameSizeMs float64
	Stereo      bool
	FrameCount  int
	VBR         bool
	Padding     bool

	bitrate int
}

var _ frame.Header = (*Header)(nil)

func (h *Header) HeaderLength() int { return 1 } // the TOC byte itself; packet length is the Ogg segment length
func (h *Header) SampleRate() int   { return internalSampleRate }
func (h *Header) Channels() int {
	if h.Stereo {
		return 2
	}
	return 1
}
func (h *Header) BitDepth() int { return 0 }
func (h *Header) ChannelMode() string {
	if h.Stereo {
		return "stereo"
	}
	return "mono"
}
func (h *Header) Bitrate() int     { return h.bitrate }
func (h *Header) SetBitrate(b int) { h.bitrate = b }

// UpdateFields is the cache's codec-change projection for Opus.
type UpdateFields struct {
	Channels int
	Mode     string
}

func (h *Header) updateFields() UpdateFields {
	return UpdateFields{Channels: h.Channels(), Mode: h.Mode}
}

// Key returns the cacheable key for h, excluding the frame count/VBR/padding
// fields that vary packet to packet without implying a codec change.
func (h *Header) Key() string {
	return fmt.Sprintf("%d-%t", h.Config, h.Stereo)
}

var bandwidthTable = map[int]string{
	8000:  "narrowband",
	12000: "mediumband",
	16000: "wideband",
	24000: "superwideband",
	48000: "fullband",
}

func modeForConfig(config byte) string {
	switch {
	case config <= 11:
		return "silk"
	case config <= 15:
		return "hybrid"
	default:
		return "celt"
	}
}

func bandwidthHzForConfig(config byte) int {
	switch config {
	case 0, 1, 2, 3, 16, 17, 18, 19:
		return 8000
	case 4, 5, 6, 7:
		return 12000
	case 8, 9, 10, 11, 20, 21, 22, 23:
		return 16000
	case 12, 13, 24, 25, 26, 27:
		return 24000
	case 14, 15, 28, 29, 30, 31:
		return 48000
	}
	return 0
}

func frameSizeMsForConfig(config byte) float64 {
	switch config {
	case 0, 4, 8, 12, 14, 18, 22, 26, 30:
		return 10
	case 1, 5, 9, 13, 15, 19, 23, 27, 31:
		return 20
	case 2, 6, 10:
		return 40
	case 3, 7, 11:
		return 60
	case 16, 20, 24, 28:
		return 2.5
	case 17, 21, 25, 29:
		return 5
	}
	return 0
}

// parseTOC decodes the TOC byte (and, for code 3, the following frame-count
// byte) of an Opus packet. It returns (nil, false) only if packet is empty.
func parseTOC(id *IDHeader, packet []byte) (*Header, bool) {
	if len(packet) == 0 {
		return nil, false
	}
	b0 := packet[0]
	config := b0 >> 3
	stereo := (b0>>2)&0x1 == 1
	code := b0 & 0x3

	h := &Header{
		id:          id,
		Config:      config,
		Mode:        modeForConfig(config),
		Bandwidth:   bandwidthTable[bandwidthHzForConfig(config)],
		FrameSizeMs: frameSizeMsForConfig(config),
		Stereo:      stereo,
	}

	switch code {
	case 0:
		h.FrameCount = 1
	case 1, 2:
		h.FrameCount = 2
	case 3:
		if len(packet) < 2 {
			h.FrameCount = 1
			break
		}
		fc := packet[1]
		h.FrameCount = int(fc & 0x3F)
		h.VBR = fc&0x80 != 0
		h.Padding = fc&0x40 != 0
		if h.FrameCount == 0 {
			h.FrameCount = 1
		}
	}
	return h, true
}
