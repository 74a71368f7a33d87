// ABOUTME: FLAC native frame header decoding: fixed 32-bit prefix, UTF-8-like
// ABOUTME: coded frame/sample number, optional end-of-header size fields, CRC-8
package flacframe

import (
	"fmt"

	"github.com/framewise-audio/demux/internal/bitutil"
	"github.com/framewise-audio/demux/internal/frame"
)

const syncCode = 0x3FFE // 14-bit "11111111111110"

// Header is the decoded FLAC native frame header.
type Header struct {
	BlockingStrategyVariable bool
	BlockSizeCode            uint32
	SampleRateCode           uint32
	ChannelAssignment        uint32
	SampleSizeCode           uint32
	FrameOrSampleNumber      uint64
	CRC8                     byte

	BlockSize int
	Length    int // header length in bytes, not including frame data

	samplerate int
	bitdepth   int
	bitrate    int
}

var _ frame.Header = (*Header)(nil)

func (h *Header) HeaderLength() int      { return h.Length }
func (h *Header) SampleRate() int        { return h.samplerate }
func (h *Header) Channels() int          { return channelsFromAssignment(h.ChannelAssignment) }
func (h *Header) BitDepth() int          { return h.bitdepth }
func (h *Header) ChannelMode() string    { return channelModeFromAssignment(h.ChannelAssignment) }
func (h *Header) Bitrate() int           { return h.bitrate }
func (h *Header) SetBitrate(bitrate int) { h.bitrate = bitrate }

// UpdateFields is the cache's codec-change projection for native FLAC.
type UpdateFields struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (h *Header) updateFields() UpdateFields {
	return UpdateFields{SampleRate: h.samplerate, Channels: h.Channels(), BitDepth: h.bitdepth}
}

// UpdateFields is exported for the FLAC-in-Ogg nested parser, which shares
// this package's cache record shape but lives outside it.
func (h *Header) UpdateFields() UpdateFields {
	return h.updateFields()
}

// Key returns the cacheable key for h, excluding the frame/sample number and
// CRC-8 which vary every frame without implying a codec change.
func (h *Header) Key() string {
	return fmt.Sprintf("%d-%d-%d-%d", h.BlockSizeCode, h.SampleRateCode, h.ChannelAssignment, h.SampleSizeCode)
}

// decodeUTF8Like decodes FLAC's UTF-8-style variable-length integer starting
// at data[0]. It returns the decoded value, the number of bytes consumed, and
// whether the encoding was well-formed.
func decodeUTF8Like(data []byte) (uint64, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	first := data[0]
	var extra int
	var value uint64
	switch {
	case first&0x80 == 0x00:
		return uint64(first), 1, true
	case first&0xE0 == 0xC0:
		extra = 1
		value = uint64(first & 0x1F)
	case first&0xF0 == 0xE0:
		extra = 2
		value = uint64(first & 0x0F)
	case first&0xF8 == 0xF0:
		extra = 3
		value = uint64(first & 0x07)
	case first&0xFC == 0xF8:
		extra = 4
		value = uint64(first & 0x03)
	case first&0xFE == 0xFC:
		extra = 5
		value = uint64(first & 0x01)
	case first == 0xFE:
		extra = 6
		value = 0
	default:
		return 0, 0, false
	}
	if len(data) < extra+1 {
		return 0, 0, false
	}
	for i := 1; i <= extra; i++ {
		b := data[i]
		if b&0xC0 != 0x80 {
			return 0, 0, false
		}
		value = value<<6 | uint64(b&0x3F)
	}
	return value, extra + 1, true
}

// ParseHeader decodes an isolated FLAC frame header from the front of data.
// It is exported for the FLAC-in-Ogg nested parser, which decodes headers
// without this package's CRC-16 confirmation loop (Ogg page framing already
// delimits the packet).
func ParseHeader(data []byte) (*Header, bool) {
	return parseHeader(data)
}

// parseHeader decodes a FLAC native frame header from the front of data,
// returning (nil, false) on any sync/reserved/CRC-8 failure.
func parseHeader(data []byte) (*Header, bool) {
	if len(data) < 4 {
		return nil, false
	}
	r := bitutil.NewReader(data)

	sync, _ := r.Bits(14)
	if sync != syncCode {
		return nil, false
	}
	reserved1, _ := r.Bits(1)
	if reserved1 != 0 {
		return nil, false
	}
	blockingStrategy, _ := r.Bits(1)
	blockSizeCode, _ := r.Bits(4)
	sampleRateCode, _ := r.Bits(4)
	chanAssign, _ := r.Bits(4)
	if chanAssign > 11 {
		return nil, false
	}
	sampleSizeCode, _ := r.Bits(3)
	reserved2, _ := r.Bits(1)
	if reserved2 != 0 {
		return nil, false
	}

	bitdepth := bitDepthTable[sampleSizeCode]
	if bitdepth == 0 {
		return nil, false
	}

	pos := 4
	num, numLen, ok := decodeUTF8Like(data[pos:])
	if !ok {
		return nil, false
	}
	pos += numLen

	blockSize := blockSizeTable[blockSizeCode]
	switch blockSizeCode {
	case 0, 6, 7:
		n := 1
		if blockSizeCode == 7 {
			n = 2
		}
		if blockSizeCode == 0 {
			return nil, false
		}
		if len(data) < pos+n {
			return nil, false
		}
		v := 0
		for i := 0; i < n; i++ {
			v = v<<8 | int(data[pos+i])
		}
		blockSize = v + 1
		pos += n
	}
	if blockSize == 0 {
		return nil, false
	}

	sampleRate := sampleRateTable[sampleRateCode]
	switch sampleRateCode {
	case 0, 15:
		return nil, false
	case 12, 13, 14:
		n := 1
		if sampleRateCode != 12 {
			n = 2
		}
		if len(data) < pos+n {
			return nil, false
		}
		v := 0
		for i := 0; i < n; i++ {
			v = v<<8 | int(data[pos+i])
		}
		switch sampleRateCode {
		case 12:
			sampleRate = v * 1000
		case 13:
			sampleRate = v
		case 14:
			sampleRate = v * 10
		}
		pos += n
	}
	if sampleRate == 0 {
		return nil, false
	}

	if len(data) < pos+1 {
		return nil, false
	}
	crc8 := data[pos]
	headerLen := pos + 1
	if bitutil.CRC8(0, data[:pos]) != crc8 {
		return nil, false
	}

	h := &Header{
		BlockingStrategyVariable: blockingStrategy == 1,
		BlockSizeCode:            blockSizeCode,
		SampleRateCode:           sampleRateCode,
		ChannelAssignment:        chanAssign,
		SampleSizeCode:           sampleSizeCode,
		FrameOrSampleNumber:      num,
		CRC8:                     crc8,
		BlockSize:                blockSize,
		Length:                   headerLen,
		samplerate:               sampleRate,
		bitdepth:                 bitdepth,
	}
	return h, true
}
