// ABOUTME: Ogg page header decoding: 27-byte fixed prefix, segment table, CRC-32
// ABOUTME: Grounded on the classic OggS sync-and-slide read pattern
package ogg

import (
	"encoding/binary"

	"github.com/framewise-audio/demux/internal/bitutil"
)

const fixedHeaderSize = 27

const (
	headerTypeContinued = 0x1
	headerTypeFirst     = 0x2
	headerTypeLast      = 0x4
)

// pageHeader is the decoded fixed portion of an Ogg page, plus its segment
// table, before segment payloads are sliced out.
type pageHeader struct {
	headerType              byte
	absoluteGranulePosition int64
	streamSerialNumber      uint32
	pageSequenceNumber      uint32
	pageChecksum            uint32
	segmentTable            []byte
	payloadLength           int
	totalLength             int // fixedHeaderSize + len(segmentTable) + payloadLength
}

// parsePageHeader decodes a page header from the front of data, validating
// the CRC-32 over the header (checksum field zeroed) plus payload. It
// returns (nil, false) if data is too short to contain the full page (based
// on the segment table's declared payload length), or if sync/version/CRC
// checks fail.
func parsePageHeader(data []byte) (*pageHeader, bool) {
	if len(data) < fixedHeaderSize {
		return nil, false
	}
	if data[0] != 'O' || data[1] != 'g' || data[2] != 'g' || data[3] != 'S' {
		return nil, false
	}
	if data[4] != 0 { // version
		return nil, false
	}
	headerType := data[5]
	granule := int64(binary.LittleEndian.Uint64(data[6:14]))
	serial := binary.LittleEndian.Uint32(data[14:18])
	seq := binary.LittleEndian.Uint32(data[18:22])
	checksum := binary.LittleEndian.Uint32(data[22:26])
	pageSegments := int(data[26])

	if len(data) < fixedHeaderSize+pageSegments {
		return nil, false
	}
	segTable := data[fixedHeaderSize : fixedHeaderSize+pageSegments]
	payloadLen := 0
	for _, v := range segTable {
		payloadLen += int(v)
	}
	totalLen := fixedHeaderSize + pageSegments + payloadLen
	if len(data) < totalLen {
		return nil, false
	}

	page := make([]byte, totalLen)
	copy(page, data[:totalLen])
	page[22], page[23], page[24], page[25] = 0, 0, 0, 0
	if bitutil.OggCRC32(0, page) != checksum {
		return nil, false
	}

	return &pageHeader{
		headerType:              headerType,
		absoluteGranulePosition: granule,
		streamSerialNumber:      serial,
		pageSequenceNumber:      seq,
		pageChecksum:            checksum,
		segmentTable:            append([]byte(nil), segTable...),
		payloadLength:           payloadLen,
		totalLength:             totalLen,
	}, true
}

func (h *pageHeader) isContinued() bool { return h.headerType&headerTypeContinued != 0 }
func (h *pageHeader) isFirst() bool     { return h.headerType&headerTypeFirst != 0 }
func (h *pageHeader) isLast() bool      { return h.headerType&headerTypeLast != 0 }

// segmentViews slices the segment table into individual segment byte views
// over payload (which starts at data[fixedHeaderSize+len(segmentTable):]).
// Consecutive 255-length segments belong to the same logical packet and are
// merged into one view; a run terminated by a length < 255 closes the
// packet, and a run still open at the end of the table is the page's
// trailing (possibly continued) packet.
func segmentViews(h *pageHeader, data []byte) [][]byte {
	payload := data[fixedHeaderSize+len(h.segmentTable) : h.totalLength]
	var segments [][]byte
	var cur []byte
	off := 0
	for _, segLen := range h.segmentTable {
		cur = append(cur, payload[off:off+int(segLen)]...)
		off += int(segLen)
		if segLen < 255 {
			segments = append(segments, cur)
			cur = nil
		}
	}
	if cur != nil {
		segments = append(segments, cur)
	}
	return segments
}

// lastSegmentIsContinuation reports whether the page's raw segment table
// ends in a 255-length segment, meaning its last logical packet continues
// onto the next page.
func lastSegmentIsContinuation(h *pageHeader) bool {
	if len(h.segmentTable) == 0 {
		return false
	}
	return h.segmentTable[len(h.segmentTable)-1] == 255
}
