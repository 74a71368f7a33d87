// ABOUTME: MPEG audio frame synchronization and framing driver integration
// ABOUTME: Two-header confirmation skeleton shared conceptually with the AAC parser
package mpeg

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/headercache"
	"github.com/framewise-audio/demux/internal/id3"
	"github.com/framewise-audio/demux/internal/streambuf"
)

// UpdateCallback is invoked when a codec-parameter change is detected. The
// header's own accessors (Bitrate, SampleRate, Channels, ...) already carry
// the changed values by the time this fires.
type UpdateCallback func(header *Header, timestampMs float64)

// Parser decodes MPEG audio frames from a stream.
type Parser struct {
	cache      *headercache.Cache[*Header, UpdateFields]
	logger     *slog.Logger
	onUpdate   UpdateCallback
	skippedID3 bool
}

// New returns a parser ready to sync on an MPEG audio stream.
func New(logger *slog.Logger, onUpdate UpdateCallback) *Parser {
	return &Parser{cache: headercache.New[*Header, UpdateFields](), logger: logger, onUpdate: onUpdate}
}

// Codec reports the fixed codec tag for this parser.
func (p *Parser) Codec() string { return "mpeg" }

// TryParse performs one step of the sync loop: skip a leading ID3v2 tag if
// present, try a header at offset 0, and either confirm+emit a frame,
// advance past garbage, or report that more data is needed.
func (p *Parser) TryParse(buf *streambuf.Buffer, counters *frame.Counters) (frame.Emission, int, error) {
	if !p.skippedID3 {
		view, ok := buf.View(0, id3.HeaderSize-1)
		if !ok {
			return nil, 0, nil
		}
		if n, hit := id3.TagLength(view); hit {
			if len(view) < n {
				// need the whole tag buffered before we can skip it
				view2, ok2 := buf.View(0, n-1)
				if !ok2 {
					return nil, 0, nil
				}
				if len(view2) < n {
					// flushing with a truncated tag: skip whatever we have
					p.skippedID3 = true
					return nil, len(view2), nil
				}
			}
			p.skippedID3 = true
			return nil, n, nil
		}
		p.skippedID3 = true
	}

	view, ok := buf.View(0, 3)
	if !ok {
		return nil, 0, nil
	}
	if len(view) == 0 {
		return nil, 0, nil // flushing and fully drained
	}
	h, valid := parseHeader(view)
	if !valid {
		return nil, 1, nil
	}

	flushing := buf.Flushing()

	var confirmed bool
	if flushing {
		confirmed = true
	} else {
		nextHeaderView, haveNext := buf.View(h.Length, 3)
		if !haveNext {
			return nil, 0, nil
		}
		if _, ok := parseHeader(nextHeaderView); ok {
			confirmed = true
		}
	}

	dataView, _ := buf.View(0, h.Length-1)
	length := h.Length
	if len(dataView) < length {
		length = len(dataView)
	}

	if !confirmed {
		frame.Warn(p.logger, "mpeg sync lost, resetting header cache", frame.Stats{
			Codec: p.Codec(), ReadPosition: buf.Pos(), TotalBytesIn: buf.TotalBytesIn(),
		})
		p.cache.Reset()
		return nil, 1, nil
	}

	p.cache.Enable()
	p.cache.SetHeader(h.Key(), h, h.updateFields())
	p.cache.GetHeader(h.Key())

	cf := &frame.CodecFrame{
		Header:   h,
		Data:     append([]byte(nil), dataView[:length]...),
		Samples:  h.Samples,
		Duration: float64(h.Samples) / float64(h.samplerate) * 1000,
	}
	counters.SampleRate = h.samplerate
	frame.MapCodecFrame(counters, cf)

	timestampMs := float64(counters.TotalSamples) / float64(h.samplerate) * 1000
	p.cache.CheckCodecUpdate(h.Bitrate(), func(fields UpdateFields, bitrate int) {
		if p.onUpdate != nil {
			p.onUpdate(h, timestampMs)
		}
	})

	return cf, length, nil
}

// Reset restores the parser to its just-constructed state, used when the
// driver is flushed and rebuilt for reuse.
func (p *Parser) Reset() {
	p.cache.Reset()
	p.skippedID3 = false
}
