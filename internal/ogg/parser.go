// ABOUTME: Ogg container sync loop: fixed-length page framing, continued-packet stitching, nested codec dispatch
// ABOUTME: Grounded on the classic OggS sync-and-slide read pattern, extended with sequence monitoring and codec identification
package ogg

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/flacframe"
	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/oggflac"
	"github.com/framewise-audio/demux/internal/opus"
	"github.com/framewise-audio/demux/internal/streambuf"
	"github.com/framewise-audio/demux/internal/vorbis"
)

// Parser drives the Ogg container state machine: it owns the physical page
// sync loop and, once the logical stream's codec is identified from the
// first page, dispatches every page to the nested codec parser.
type Parser struct {
	logger        *slog.Logger
	onCodec       func(tag string)
	onCodecUpdate func(header frame.Header, timestampMs float64)

	nested    NestedParser
	codecTag  string
	pageIndex int

	havePrevSeq bool
	prevSeq     uint32

	continuedBuf []byte
}

// New returns a parser ready to identify the codec of the first logical
// stream it sees. onCodec fires once, at identification; onCodecUpdate is
// forwarded from whichever nested parser is active.
func New(logger *slog.Logger, onCodec func(tag string), onCodecUpdate func(header frame.Header, timestampMs float64)) *Parser {
	return &Parser{logger: logger, onCodec: onCodec, onCodecUpdate: onCodecUpdate}
}

// Codec reports the identified nested codec tag, or "" before identification.
func (p *Parser) Codec() string { return p.codecTag }

var skeletonMarkers = [][]byte{
	[]byte("fishead\x00"),
	[]byte("fisbone\x00"),
	[]byte("index\x00\x00\x00"),
}

// identify inspects the first segment of a not-yet-dispatched page and, on
// a recognized magic, constructs the nested parser and remembers the codec
// tag. Skeleton marker pages match none of the codec magics and are left
// for the caller to silently skip.
func (p *Parser) identify(firstSegment []byte) {
	if len(firstSegment) < 8 {
		return
	}
	for _, marker := range skeletonMarkers {
		if string(firstSegment[:len(marker)]) == string(marker) {
			return
		}
	}

	switch {
	case string(firstSegment[:8]) == "OpusHead":
		p.codecTag = "opus"
		p.nested = opus.New(p.logger, func(h *opus.Header, ts float64) {
			if p.onCodecUpdate != nil {
				p.onCodecUpdate(h, ts)
			}
		})
	case firstSegment[0] == 0x7F && string(firstSegment[1:5]) == "FLAC":
		p.codecTag = "flac"
		p.nested = oggflac.New(p.logger, func(h *flacframe.Header, ts float64) {
			if p.onCodecUpdate != nil {
				p.onCodecUpdate(h, ts)
			}
		})
	case firstSegment[0] == 0x01 && string(firstSegment[1:7]) == "vorbis":
		p.codecTag = "vorbis"
		p.nested = vorbis.New(p.logger, func(h *vorbis.Header, ts float64) {
			if p.onCodecUpdate != nil {
				p.onCodecUpdate(h, ts)
			}
		})
	default:
		return
	}

	if p.onCodec != nil {
		p.onCodec(p.codecTag)
	}
}

// TryParse performs one step of the fixed-length page sync loop: probe the
// 27-byte fixed prefix, read the segment table to compute the page's total
// length, then validate and emit the full page once every byte it covers
// has been observed.
func (p *Parser) TryParse(buf *streambuf.Buffer, counters *frame.Counters) (frame.Emission, int, error) {
	prefix, ok := buf.View(0, fixedHeaderSize-1)
	if !ok {
		return nil, 0, nil
	}
	if len(prefix) == 0 {
		return nil, 0, nil // flushing and fully drained
	}
	if len(prefix) < 4 || prefix[0] != 'O' || prefix[1] != 'g' || prefix[2] != 'g' || prefix[3] != 'S' {
		return nil, 1, nil
	}
	if len(prefix) < fixedHeaderSize {
		if !buf.Flushing() {
			return nil, 0, nil
		}
		return nil, 1, nil
	}
	pageSegments := int(prefix[26])

	tableView, ok := buf.View(0, fixedHeaderSize+pageSegments-1)
	if !ok {
		return nil, 0, nil
	}
	if len(tableView) < fixedHeaderSize+pageSegments {
		return nil, 1, nil // flushing with a truncated segment table
	}
	segTable := tableView[fixedHeaderSize : fixedHeaderSize+pageSegments]
	payloadLen := 0
	for _, v := range segTable {
		payloadLen += int(v)
	}
	totalLen := fixedHeaderSize + pageSegments + payloadLen

	fullView, ok := buf.View(0, totalLen-1)
	if !ok {
		return nil, 0, nil
	}
	if len(fullView) < totalLen {
		return nil, 1, nil // flushing with a truncated page
	}

	ph, valid := parsePageHeader(fullView[:totalLen])
	if !valid {
		frame.Warn(p.logger, "ogg page CRC-32 mismatch, skipping", frame.Stats{
			Codec: p.codecTag, ReadPosition: buf.Pos(), TotalBytesIn: buf.TotalBytesIn(),
		})
		return nil, 1, nil
	}

	if p.havePrevSeq && p.prevSeq > 1 && ph.pageSequenceNumber > 1 && ph.pageSequenceNumber != p.prevSeq+1 {
		frame.Warn(p.logger, "ogg page sequence number gap", frame.Stats{
			Codec: p.codecTag, ReadPosition: buf.Pos(), TotalBytesIn: buf.TotalBytesIn(),
		})
	}
	p.prevSeq = ph.pageSequenceNumber
	p.havePrevSeq = true

	segs := segmentViews(ph, fullView[:totalLen])

	if len(p.continuedBuf) > 0 && len(segs) > 0 {
		segs[0] = append(append([]byte(nil), p.continuedBuf...), segs[0]...)
		p.continuedBuf = nil
	}
	if lastSegmentIsContinuation(ph) && len(segs) > 0 {
		p.continuedBuf = append([]byte(nil), segs[len(segs)-1]...)
		segs = segs[:len(segs)-1]
	}

	page := &frame.OggPage{
		RawData:                 append([]byte(nil), fullView[:totalLen]...),
		Segments:                segs,
		AbsoluteGranulePosition: ph.absoluteGranulePosition,
		PageSequenceNumber:      ph.pageSequenceNumber,
		StreamSerialNumber:      ph.streamSerialNumber,
		CRC32:                   ph.pageChecksum,
		IsContinuedPacket:       ph.isContinued(),
		IsFirstPage:             ph.isFirst(),
		IsLastPage:              ph.isLast(),
	}

	if p.nested == nil && len(segs) > 0 {
		p.identify(segs[0])
	}

	if p.nested != nil {
		if err := p.nested.ParseOggPage(page, p.pageIndex, counters); err != nil {
			return nil, 0, err
		}
		p.pageIndex++
	}

	return page, totalLen, nil
}

// Reset restores the parser to its just-constructed state, used when the
// driver is flushed and rebuilt for reuse.
func (p *Parser) Reset() {
	p.nested = nil
	p.codecTag = ""
	p.pageIndex = 0
	p.havePrevSeq = false
	p.prevSeq = 0
	p.continuedBuf = nil
}
