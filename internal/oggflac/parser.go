// ABOUTME: FLAC-in-Ogg packet decoding: page 0 carries a STREAMINFO-suffixed id packet, pages 2+ carry one frame per segment
// ABOUTME: Frames are decoded in isolation (no trailing-CRC16 confirmation loop) since Ogg page framing already delimits each packet
package oggflac

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/flacframe"
	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/headercache"
)

// streamInfoOffset is where the 38-byte STREAMINFO metadata block starts
// within the first page's id packet: 1 (0x7F) + 4 ("FLAC") + 1 (major) +
// 1 (minor) + 2 (numheaders) + 4 ("fLaC" native marker) = 13.
const streamInfoOffset = 13

// UpdateCallback is invoked when a codec-parameter change is detected. The
// header's own accessors (Bitrate, SampleRate, Channels, ...) already carry
// the changed values by the time this fires.
type UpdateCallback func(header *flacframe.Header, timestampMs float64)

// Parser decodes native FLAC frames carried one-per-segment inside an Ogg
// logical stream.
type Parser struct {
	cache      *headercache.Cache[*flacframe.Header, flacframe.UpdateFields]
	logger     *slog.Logger
	onUpdate   UpdateCallback
	streamInfo []byte
}

// New returns a parser ready to accept the STREAMINFO-suffixed id packet on
// page 0.
func New(logger *slog.Logger, onUpdate UpdateCallback) *Parser {
	return &Parser{cache: headercache.New[*flacframe.Header, flacframe.UpdateFields](), logger: logger, onUpdate: onUpdate}
}

// Codec reports the fixed codec tag for this parser.
func (p *Parser) Codec() string { return "flac" }

// ParseOggPage dispatches one Ogg page belonging to this logical stream:
// page 0 stores the STREAMINFO suffix, page 1 (Vorbis comments) is ignored,
// and segments starting with the FLAC sync byte on pages 2+ are each
// decoded as one isolated frame.
func (p *Parser) ParseOggPage(page *frame.OggPage, pageIndex int, counters *frame.Counters) error {
	switch pageIndex {
	case 0:
		if len(page.Segments) > 0 && len(page.Segments[0]) > streamInfoOffset {
			p.streamInfo = append([]byte(nil), page.Segments[0][streamInfoOffset:]...)
		}
		return nil
	case 1:
		return nil // Vorbis comments, ignored
	}

	p.cache.Enable()

	for _, seg := range page.Segments {
		if len(seg) == 0 || seg[0] != 0xFF {
			continue
		}
		h, ok := flacframe.ParseHeader(seg)
		if !ok {
			frame.Warn(p.logger, "ogg-flac frame header failed to parse, skipping segment", frame.Stats{
				Codec: p.Codec(), TotalBytesOut: counters.TotalBytesOut,
			})
			continue
		}

		counters.SampleRate = h.SampleRate()
		cf := &frame.CodecFrame{
			Header:   h,
			Data:     append([]byte(nil), seg...),
			Samples:  h.BlockSize,
			Duration: float64(h.BlockSize) / float64(h.SampleRate()) * 1000,
		}
		frame.MapCodecFrame(counters, cf)

		timestampMs := float64(counters.TotalSamples) / float64(h.SampleRate()) * 1000
		p.cache.SetHeader(h.Key(), h, h.UpdateFields())
		p.cache.GetHeader(h.Key())
		p.cache.CheckCodecUpdate(h.Bitrate(), func(fields flacframe.UpdateFields, bitrate int) {
			if p.onUpdate != nil {
				p.onUpdate(h, timestampMs)
			}
		})

		page.CodecFrames = append(page.CodecFrames, cf)
		page.TotalBytesOut = cf.TotalBytesOut + int64(len(cf.Data))
		page.TotalSamples = cf.TotalSamples + int64(cf.Samples)
		page.TotalDuration = float64(page.TotalSamples) / float64(h.SampleRate()) * 1000
	}
	return nil
}

// StreamInfo returns the raw STREAMINFO metadata block bytes captured from
// page 0, or nil if no id page has been seen yet.
func (p *Parser) StreamInfo() []byte { return p.streamInfo }

// Reset restores the parser to its just-constructed state.
func (p *Parser) Reset() {
	p.cache.Reset()
	p.streamInfo = nil
}
