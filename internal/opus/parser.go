// ABOUTME: Opus-in-Ogg packet decoding: page 0 is the id header, page 1 is tags, pages 2+ carry audio packets
// ABOUTME: Each Ogg segment on an audio page becomes exactly one Opus packet decoded via its TOC byte
package opus

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/headercache"
)

// UpdateCallback is invoked when a codec-parameter change is detected. The
// header's own accessors (Bitrate, SampleRate, Channels, ...) already carry
// the changed values by the time this fires.
type UpdateCallback func(header *Header, timestampMs float64)

// Parser decodes Opus packets nested inside an Ogg logical stream.
type Parser struct {
	cache    *headercache.Cache[*Header, UpdateFields]
	logger   *slog.Logger
	onUpdate UpdateCallback
	id       *IDHeader
}

// New returns a parser ready to accept the id header on page 0.
func New(logger *slog.Logger, onUpdate UpdateCallback) *Parser {
	return &Parser{cache: headercache.New[*Header, UpdateFields](), logger: logger, onUpdate: onUpdate}
}

// Codec reports the fixed codec tag for this parser.
func (p *Parser) Codec() string { return "opus" }

// ParseOggPage dispatches one Ogg page belonging to this logical stream:
// page 0 stores the identification header, page 1 (OpusTags) is ignored,
// and every segment on pages 2+ is decoded as one Opus packet and appended
// to page.CodecFrames.
func (p *Parser) ParseOggPage(page *frame.OggPage, pageIndex int, counters *frame.Counters) error {
	switch pageIndex {
	case 0:
		if len(page.Segments) > 0 {
			if id, ok := ParseIDHeader(page.Segments[0]); ok {
				p.id = id
			}
		}
		return nil
	case 1:
		return nil // OpusTags, carries no audio
	}

	p.cache.Enable()
	counters.SampleRate = internalSampleRate

	for _, seg := range page.Segments {
		h, ok := parseTOC(p.id, seg)
		if !ok {
			continue
		}

		samples := int(float64(h.FrameCount) * h.FrameSizeMs * internalSampleRate / 1000)
		cf := &frame.CodecFrame{
			Header:   h,
			Data:     append([]byte(nil), seg...),
			Samples:  samples,
			Duration: float64(h.FrameCount) * h.FrameSizeMs,
		}
		frame.MapCodecFrame(counters, cf)

		timestampMs := float64(counters.TotalSamples) / internalSampleRate * 1000
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
		page.TotalDuration = float64(page.TotalSamples) / internalSampleRate * 1000
	}
	return nil
}

// Reset restores the parser to its just-constructed state.
func (p *Parser) Reset() {
	p.cache.Reset()
	p.id = nil
}
