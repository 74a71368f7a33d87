// ABOUTME: MPEG audio frame header decoding (versions 1/2/2.5, layers I-III)
// ABOUTME: Fixed 4-byte header plus optional 2-byte CRC, grounded on the classic frame-sync layout
package mpeg

import (
	"fmt"

	"github.com/framewise-audio/demux/internal/bitutil"
	"github.com/framewise-audio/demux/internal/frame"
)

// Header is the decoded MPEG audio frame header.
type Header struct {
	Version        Version
	MPEGLayer      Layer
	Protected      bool // true when a 16-bit CRC follows the header
	BitrateIndex   uint32
	SampleRateIdx  uint32
	Padding        bool
	Private        bool
	ChannelModeRaw uint32 // 0=stereo, 1=joint stereo, 2=dual channel, 3=mono
	ModeExtension  uint32
	Copyright      bool
	Original       bool
	Emphasis       uint32

	Samples int
	Length  int // frameLength in bytes, including the header

	bitrateKbps int
	samplerate  int
	bitrate     int // bits/sec, set during stats mapping
}

var _ frame.Header = (*Header)(nil)

func (h *Header) HeaderLength() int      { return h.Length }
func (h *Header) SampleRate() int        { return h.samplerate }
func (h *Header) Channels() int          { return channels(h.ChannelModeRaw) }
func (h *Header) BitDepth() int          { return 0 } // MPEG audio carries no fixed PCM bit depth
func (h *Header) ChannelMode() string    { return channelModeNames[h.ChannelModeRaw] }
func (h *Header) Bitrate() int           { return h.bitrate }
func (h *Header) SetBitrate(bitrate int) { h.bitrate = bitrate }

func channels(mode uint32) int {
	if mode == 3 {
		return 1
	}
	return 2
}

// UpdateFields is the cache's "did the codec change" projection.
type UpdateFields struct {
	SampleRate  int
	Channels    int
	ChannelMode string
}

func (h *Header) updateFields() UpdateFields {
	return UpdateFields{SampleRate: h.samplerate, Channels: h.Channels(), ChannelMode: h.ChannelMode()}
}

// Key returns the cacheable key for h: the stable bits of the header,
// excluding the length-variable padding bit.
func (h *Header) Key() string {
	return fmt.Sprintf("%d-%d-%t-%d-%d-%d-%d-%t-%t-%d",
		h.Version, h.MPEGLayer, h.Protected, h.BitrateIndex, h.SampleRateIdx,
		h.ChannelModeRaw, h.ModeExtension, h.Copyright, h.Original, h.Emphasis)
}

// parseHeader decodes a 4-byte (or 6-byte with CRC) header starting at the
// front of data. It returns (nil, false) on any sync/reserved-value
// failure rather than an error, matching the spec's "local advance and
// retry" treatment of invalid headers.
func parseHeader(data []byte) (*Header, bool) {
	if len(data) < 4 {
		return nil, false
	}
	r := bitutil.NewReader(data[:4])

	sync, _ := r.Bits(11)
	if sync != 0x7FF {
		return nil, false
	}
	versionBits, _ := r.Bits(2)
	version := Version(versionBits)
	if version == VersionReserved {
		return nil, false
	}
	layerBits, _ := r.Bits(2)
	layer := Layer(layerBits)
	if layer == LayerReserved {
		return nil, false
	}
	protBit, _ := r.Bits(1)
	bitrateIdx, _ := r.Bits(4)
	srIdx, _ := r.Bits(2)
	paddingBit, _ := r.Bits(1)
	privateBit, _ := r.Bits(1)
	channelMode, _ := r.Bits(2)
	modeExt, _ := r.Bits(2)
	copyrightBit, _ := r.Bits(1)
	originalBit, _ := r.Bits(1)
	emphasis, _ := r.Bits(2)

	if emphasis == 2 { // reserved
		return nil, false
	}
	if channelMode != 1 && modeExt != 0 {
		// mode extension only has meaning for joint stereo
		return nil, false
	}

	bitrate, ok := bitrateKbps(version, layer, bitrateIdx)
	if !ok {
		return nil, false
	}
	sr, ok := sampleRate(version, srIdx)
	if !ok {
		return nil, false
	}

	h := &Header{
		Version:        version,
		MPEGLayer:      layer,
		Protected:      protBit == 0,
		BitrateIndex:   bitrateIdx,
		SampleRateIdx:  srIdx,
		Padding:        paddingBit == 1,
		Private:        privateBit == 1,
		ChannelModeRaw: channelMode,
		ModeExtension:  modeExt,
		Copyright:      copyrightBit == 1,
		Original:       originalBit == 1,
		Emphasis:       emphasis,
		bitrateKbps:    bitrate,
		samplerate:     sr,
	}
	h.Samples = samplesPerFrame(version, layer)

	pad := 0
	if h.Padding {
		pad = paddingSlotBytes(layer)
	}
	h.Length = h.bitrateKbps*125*h.Samples/h.samplerate + pad

	if h.Length <= 4 {
		return nil, false
	}
	return h, true
}
