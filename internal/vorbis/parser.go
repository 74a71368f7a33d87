// ABOUTME: Vorbis-in-Ogg packet decoding: page 0 id, page 1 comments+setup, pages 2+ audio packets
// ABOUTME: Per-packet sample counts come from the block-size state machine driven by the recovered mode table
package vorbis

import (
	"errors"
	"log/slog"

	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/headercache"
)

// ErrSetupStructureMismatch is returned when the setup packet's tail does
// not decode to a consistent mode table. The mode table is required for
// every subsequent packet, so this is a hard error for the logical stream.
var ErrSetupStructureMismatch = errors.New("vorbis: setup header structural mismatch")

// UpdateCallback is invoked when a codec-parameter change is detected. The
// header's own accessors (Bitrate, SampleRate, Channels, ...) already carry
// the changed values by the time this fires.
type UpdateCallback func(header *Header, timestampMs float64)

// Parser decodes Vorbis packets nested inside an Ogg logical stream.
type Parser struct {
	cache    *headercache.Cache[*Header, UpdateFields]
	logger   *slog.Logger
	onUpdate UpdateCallback

	id            *IDHeader
	mt            *modeTable
	prevBlockSize int
}

// New returns a parser ready to accept the id header on page 0.
func New(logger *slog.Logger, onUpdate UpdateCallback) *Parser {
	return &Parser{cache: headercache.New[*Header, UpdateFields](), logger: logger, onUpdate: onUpdate}
}

// Codec reports the fixed codec tag for this parser.
func (p *Parser) Codec() string { return "vorbis" }

// ParseOggPage dispatches one Ogg page belonging to this logical stream:
// page 0 stores the identification header, page 1 holds the comment and
// setup packets (comments ignored, setup reverse-scanned for its mode
// table), and every segment on pages 2+ is one audio packet.
func (p *Parser) ParseOggPage(page *frame.OggPage, pageIndex int, counters *frame.Counters) error {
	switch pageIndex {
	case 0:
		if len(page.Segments) > 0 {
			if id, ok := ParseIDHeader(page.Segments[0]); ok {
				p.id = id
				p.prevBlockSize = id.BlockSize0
			}
		}
		return nil
	case 1:
		if len(page.Segments) < 2 {
			return ErrSetupStructureMismatch
		}
		mt, ok := buildModeTable(page.Segments[1])
		if !ok {
			frame.Warn(p.logger, "vorbis setup header structural mismatch", frame.Stats{
				Codec: p.Codec(), TotalBytesOut: counters.TotalBytesOut,
			})
			return ErrSetupStructureMismatch
		}
		p.mt = mt
		return nil
	}

	if p.id == nil || p.mt == nil {
		return ErrSetupStructureMismatch
	}

	p.cache.Enable()
	counters.SampleRate = p.id.SampleRate

	for _, seg := range page.Segments {
		blockFlag, usesPrevFlag, prevIsLong := p.mt.blockFlagFor(seg)

		var currBlockSize int
		if blockFlag == 1 {
			if usesPrevFlag {
				if prevIsLong {
					p.prevBlockSize = p.id.BlockSize1
				} else {
					p.prevBlockSize = p.id.BlockSize0
				}
			}
			currBlockSize = p.id.BlockSize1
		} else {
			currBlockSize = p.id.BlockSize0
		}
		samples := (p.prevBlockSize + currBlockSize) >> 2
		p.prevBlockSize = currBlockSize

		h := &Header{id: p.id, BlockFlag: blockFlag, BlockSize: currBlockSize}
		cf := &frame.CodecFrame{
			Header:   h,
			Data:     append([]byte(nil), seg...),
			Samples:  samples,
			Duration: float64(samples) / float64(p.id.SampleRate) * 1000,
		}
		frame.MapCodecFrame(counters, cf)

		timestampMs := float64(counters.TotalSamples) / float64(p.id.SampleRate) * 1000
		p.cache.SetHeader(h.Key(), h, h.updateFields())
		p.cache.GetHeader(h.Key())
		p.cache.CheckCodecUpdate(h.Bitrate(), func(fields UpdateFields, bitrate int) {
			if p.onUpdate != nil {
				p.onUpdate(h, timestampMs)
			}
		})

		page.CodecFrames = append(page.CodecFrames, cf)
		page.TotalBytesOut = cf.TotalBytesOut + int64(len(cf.Data))
		page.TotalSamples = cf.TotalSamples + int64(cf.Samples)
		page.TotalDuration = float64(page.TotalSamples) / float64(p.id.SampleRate) * 1000
	}
	return nil
}

// Reset restores the parser to its just-constructed state.
func (p *Parser) Reset() {
	p.cache.Reset()
	p.id = nil
	p.mt = nil
	p.prevBlockSize = 0
}
