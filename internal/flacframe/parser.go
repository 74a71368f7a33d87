// ABOUTME: FLAC native frame synchronization via header-plus-trailing-CRC16 confirmation
// ABOUTME: Frames are variable length; there is no frame-length field to re-sync on like MPEG/AAC
package flacframe

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/bitutil"
	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/headercache"
	"github.com/framewise-audio/demux/internal/streambuf"
)

const (
	minFrameSize   = 2
	maxFrameSize   = 512 * 1024
	maxHeaderProbe = 32
)

// UpdateCallback is invoked when a codec-parameter change is detected. The
// header's own accessors (Bitrate, SampleRate, Channels, ...) already carry
// the changed values by the time this fires.
type UpdateCallback func(header *Header, timestampMs float64)

// Parser decodes native FLAC frames from a stream.
type Parser struct {
	cache    *headercache.Cache[*Header, UpdateFields]
	logger   *slog.Logger
	onUpdate UpdateCallback
}

// New returns a parser ready to sync on a native FLAC stream.
func New(logger *slog.Logger, onUpdate UpdateCallback) *Parser {
	return &Parser{cache: headercache.New[*Header, UpdateFields](), logger: logger, onUpdate: onUpdate}
}

// Codec reports the fixed codec tag for this parser.
func (p *Parser) Codec() string { return "flac" }

// nextFrameSyncCandidate scans data from index start onward for a byte pair
// matching the FLAC sync word (0xFF followed by 0xF8 or 0xF9, the reserved
// bit and either blocking-strategy value). It returns the index of the 0xFF
// byte, or false if no candidate is present in the scanned window.
func nextFrameSyncCandidate(data []byte, start int) (int, bool) {
	for i := start; i+1 < len(data); i++ {
		if data[i] == 0xFF && (data[i+1] == 0xF8 || data[i+1] == 0xF9) {
			return i, true
		}
	}
	return 0, false
}

// tryEmitAt checks whether the bytes buf[0:candidateLen] form a frame whose
// trailing two bytes are a correct CRC-16 of the rest, and if so emits it.
func (p *Parser) tryEmitAt(buf *streambuf.Buffer, counters *frame.Counters, h *Header, candidateLen int) (frame.Emission, int, bool) {
	if candidateLen < minFrameSize {
		return nil, 0, false
	}
	frameView, _ := buf.View(0, candidateLen-1)
	if len(frameView) < candidateLen {
		return nil, 0, false
	}
	candidate := frameView[:candidateLen]
	stored := uint16(candidate[candidateLen-2])<<8 | uint16(candidate[candidateLen-1])
	if bitutil.FLACCRC16(candidate[:candidateLen-2]) != stored {
		return nil, 0, false
	}

	p.cache.Enable()
	p.cache.SetHeader(h.Key(), h, h.updateFields())

	cf := &frame.CodecFrame{
		Header:   h,
		Data:     append([]byte(nil), candidate...),
		Samples:  h.BlockSize,
		Duration: float64(h.BlockSize) / float64(h.samplerate) * 1000,
	}
	counters.SampleRate = h.samplerate
	frame.MapCodecFrame(counters, cf)

	timestampMs := float64(counters.TotalSamples) / float64(h.samplerate) * 1000
	p.cache.CheckCodecUpdate(h.Bitrate(), func(fields UpdateFields, bitrate int) {
		if p.onUpdate != nil {
			p.onUpdate(h, timestampMs)
		}
	})
	return cf, candidateLen, true
}

// TryParse performs one step of the header-plus-trailing-CRC16 sync loop.
//
// The end of a flushing stream has no trailing sync marker to anchor the
// final candidate boundary on, which the jump-by-sync-candidate search alone
// can't reach; the last iteration additionally tries the exact end of the
// buffered data as a candidate boundary.
func (p *Parser) TryParse(buf *streambuf.Buffer, counters *frame.Counters) (frame.Emission, int, error) {
	view, ok := buf.View(0, maxHeaderProbe-1)
	if !ok {
		return nil, 0, nil
	}
	if len(view) == 0 {
		return nil, 0, nil // flushing and fully drained
	}
	h, valid := parseHeader(view)
	if !valid {
		if idx, found := nextFrameSyncCandidate(view, 1); found {
			return nil, idx, nil
		}
		return nil, 1, nil
	}

	flushing := buf.Flushing()
	nextOffset := h.Length + minFrameSize

	for nextOffset <= maxFrameSize {
		confirmed := flushing
		if !confirmed {
			tailView, haveTail := buf.View(nextOffset, maxHeaderProbe-1)
			if !haveTail {
				return nil, 0, nil
			}
			if _, ok := parseHeader(tailView); ok {
				confirmed = true
			}
		}

		if confirmed {
			if cf, consumed, ok := p.tryEmitAt(buf, counters, h, nextOffset); ok {
				return cf, consumed, nil
			}
		}

		searchView, haveSearch := buf.View(nextOffset, maxHeaderProbe-1)
		if !haveSearch {
			if !flushing {
				return nil, 0, nil
			}
			searchView, _ = buf.View(nextOffset, 0)
		}
		idx, found := nextFrameSyncCandidate(searchView, 1)
		if !found {
			if flushing && len(searchView) > 0 {
				if cf, consumed, ok := p.tryEmitAt(buf, counters, h, nextOffset+len(searchView)); ok {
					return cf, consumed, nil
				}
			}
			break
		}
		nextOffset += idx
	}

	frame.Warn(p.logger, "flac sync lost, resetting header cache", frame.Stats{
		Codec: p.Codec(), ReadPosition: buf.Pos(), TotalBytesIn: buf.TotalBytesIn(),
	})
	p.cache.Reset()
	return nil, 1, nil
}

// Reset restores the parser to its just-constructed state.
func (p *Parser) Reset() {
	p.cache.Reset()
}
