// ABOUTME: Vorbis identification-header decode and the per-packet header surface
// ABOUTME: Channel/sample-rate/bitrate fields come from the id packet; block-size selection comes from the mode table
package vorbis

import (
	"encoding/binary"
	"fmt"

	"github.com/framewise-audio/demux/internal/frame"
)

// IDHeader is the decoded Vorbis identification packet (page 0), kept for
// the lifetime of the logical stream.
type IDHeader struct {
	Version        uint32
	Channels       int
	SampleRate     int
	BitrateMax     int32
	BitrateNominal int32
	BitrateMin     int32
	BlockSize0     int
	BlockSize1     int
}

// ParseIDHeader decodes a Vorbis identification packet. The packet type byte
// (1) and "vorbis" magic occupy bytes 0-6.
func ParseIDHeader(data []byte) (*IDHeader, bool) {
	if len(data) < 30 || data[0] != 1 || string(data[1:7]) != "vorbis" {
		return nil, false
	}
	blockSizes := data[28]
	return &IDHeader{
		Version:        binary.LittleEndian.Uint32(data[7:11]),
		Channels:       int(data[11]),
		SampleRate:     int(binary.LittleEndian.Uint32(data[12:16])),
		BitrateMax:     int32(binary.LittleEndian.Uint32(data[16:20])),
		BitrateNominal: int32(binary.LittleEndian.Uint32(data[20:24])),
		BitrateMin:     int32(binary.LittleEndian.Uint32(data[24:28])),
		BlockSize0:     1 << (blockSizes & 0x0F),
		BlockSize1:     1 << (blockSizes >> 4),
	}, true
}

// Header is the decoded per-packet Vorbis header: the stored id fields plus
// the block size selected for this packet by the mode table.
type Header struct {
	id *IDHeader

	ModeNumber byte
	BlockFlag  byte
	BlockSize  int

	bitrate int
}

var _ frame.Header = (*Header)(nil)

func (h *Header) HeaderLength() int { return 0 } // Vorbis packets carry no fixed byte-length prefix
func (h *Header) SampleRate() int   { return h.id.SampleRate }
func (h *Header) Channels() int     { return h.id.Channels }
func (h *Header) BitDepth() int     { return 0 }
func (h *Header) ChannelMode() string {
	switch h.id.Channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", h.id.Channels)
	}
}
func (h *Header) Bitrate() int     { return h.bitrate }
func (h *Header) SetBitrate(b int) { h.bitrate = b }

// UpdateFields is the cache's codec-change projection for Vorbis.
type UpdateFields struct {
	Channels   int
	SampleRate int
}

func (h *Header) updateFields() UpdateFields {
	return UpdateFields{Channels: h.Channels(), SampleRate: h.SampleRate()}
}

// Key returns the cacheable key for h, excluding the block-size fields that
// legitimately vary packet to packet.
func (h *Header) Key() string {
	return fmt.Sprintf("%d-%d", h.id.Channels, h.id.SampleRate)
}
