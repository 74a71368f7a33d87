// ABOUTME: Shared frame, header and statistics types for all codec parsers
// ABOUTME: Kept dependency-free of pkg/demux so codec packages avoid import cycles
package frame

import (
	"log/slog"

	"github.com/framewise-audio/demux/internal/bitutil"
)

// Header is the common surface every codec-specific header implements.
// Bitrate is mutable because it is only known once the frame's data length
// and duration are available, during statistics mapping - not at header
// parse time.
type Header interface {
	HeaderLength() int
	SampleRate() int
	Channels() int
	BitDepth() int
	ChannelMode() string
	Bitrate() int
	SetBitrate(bitrate int)
}

// CodecFrame is one fully decoded frame from a fixed-length-framed codec
// (MPEG, AAC) or FLAC's CRC-confirmed framing, or one packet surfaced from
// inside an Ogg page (Opus, Vorbis, FLAC-in-Ogg).
type CodecFrame struct {
	Header Header
	// Data is an owned copy of the frame's bytes (header + payload); safe
	// to retain past the next push/flush.
	Data []byte

	Samples     int
	Duration    float64 // milliseconds
	FrameNumber int
	CRC32       uint32

	TotalBytesOut int64
	TotalSamples  int64
	TotalDuration float64 // milliseconds
}

// OggPage is one physical Ogg page, carrying zero or more logical packets
// already dispatched to the nested codec parser as CodecFrames.
type OggPage struct {
	RawData                 []byte
	Segments                [][]byte
	CodecFrames             []*CodecFrame
	AbsoluteGranulePosition int64
	PageSequenceNumber      uint32
	StreamSerialNumber      uint32
	CRC32                   uint32
	IsContinuedPacket       bool
	IsFirstPage             bool
	IsLastPage              bool

	TotalBytesOut int64
	TotalSamples  int64
	TotalDuration float64 // milliseconds
}

// Emission is any frame the driver can emit to the host: *CodecFrame for
// MPEG/AAC/FLAC-native, *OggPage for the Ogg container.
type Emission interface {
	isEmission()
}

func (*CodecFrame) isEmission() {}
func (*OggPage) isEmission()    {}

// Counters is the driver-owned running state that statistics mapping
// reads and mutates. It is threaded through by pointer so every codec
// parser contributes to the same totals regardless of which one is
// active for a given stream.
type Counters struct {
	TotalBytesOut int64
	TotalSamples  int64
	FrameNumber   int
	SampleRate    int
}

// MapCodecFrame fills in the per-frame and running-total fields of f per
// the statistics mapping rules: bitrate from data length over duration,
// frame number from the driver's counter, pre-increment running totals,
// then the counters are advanced for the next frame.
func MapCodecFrame(c *Counters, f *CodecFrame) {
	if f.Duration > 0 {
		durationSeconds := f.Duration / 1000
		bitrate := int(roundHalfAwayFromZero(float64(len(f.Data))/durationSeconds)) * 8
		f.Header.SetBitrate(bitrate)
	}
	f.FrameNumber = c.FrameNumber
	c.FrameNumber++

	f.TotalBytesOut = c.TotalBytesOut
	f.TotalSamples = c.TotalSamples
	if c.SampleRate > 0 {
		f.TotalDuration = float64(f.TotalSamples) / float64(c.SampleRate) * 1000
	}

	f.CRC32 = bitutil.FrameCRC32(f.Data)

	c.TotalBytesOut += int64(len(f.Data))
	c.TotalSamples += int64(f.Samples)
}

// Stats is the running snapshot attached to every warning log line.
type Stats struct {
	Codec         string
	Mime          string
	ReadPosition  int64
	TotalBytesIn  int64
	TotalBytesOut int64
}

// Warn logs msg at warn level with the running stats attached as
// structured fields, or does nothing if logger is nil.
func Warn(logger *slog.Logger, msg string, s Stats) {
	if logger == nil {
		return
	}
	logger.Warn(msg,
		slog.String("codec", s.Codec),
		slog.String("mime", s.Mime),
		slog.Int64("read_position", s.ReadPosition),
		slog.Int64("total_bytes_in", s.TotalBytesIn),
		slog.Int64("total_bytes_out", s.TotalBytesOut),
	)
}

func roundHalfAwayFromZero(v float64) float64 {
	if v < 0 {
		return -roundHalfAwayFromZero(-v)
	}
	i := float64(int64(v))
	if v-i >= 0.5 {
		return i + 1
	}
	return i
}
