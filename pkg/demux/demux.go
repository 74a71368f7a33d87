// ABOUTME: Driver construction, MIME dispatch, and the parseChunk/flush/parseAll public surface
package demux

import (
	"fmt"
	"log/slog"

	"github.com/framewise-audio/demux/internal/aac"
	"github.com/framewise-audio/demux/internal/flacframe"
	"github.com/framewise-audio/demux/internal/frame"
	"github.com/framewise-audio/demux/internal/mpeg"
	"github.com/framewise-audio/demux/internal/ogg"
	"github.com/framewise-audio/demux/internal/streambuf"
)

// CodecFrame is one fully decoded frame from a fixed-length-framed codec or
// one packet surfaced from inside an Ogg page.
type CodecFrame = frame.CodecFrame

// OggPage is one physical Ogg page, carrying the codec frames decoded from
// its segments.
type OggPage = frame.OggPage

// Header is the common surface every codec-specific header implements.
type Header = frame.Header

// Frame is anything a Driver emits: *CodecFrame or *OggPage.
type Frame = frame.Emission

// Options configures a Driver at construction.
type Options struct {
	// OnCodec fires once an Ogg logical stream's nested codec is
	// identified from its first page. Unused for non-Ogg mime types,
	// whose codec is already implied by the mime at construction.
	OnCodec func(tag string)
	// OnCodecUpdate fires whenever a mid-stream codec-parameter change is
	// detected (bitrate, sample rate, channels, ...).
	OnCodecUpdate func(header Header, timestampMs float64)
	// EnableLogging routes parser warnings (resync, CRC failures, sequence
	// gaps) to slog.Default(). Warnings are silently dropped otherwise.
	EnableLogging bool
}

type codecParser interface {
	Codec() string
	TryParse(buf *streambuf.Buffer, counters *frame.Counters) (frame.Emission, int, error)
	Reset()
}

// Driver is a streaming demuxer bound to one MIME family for its lifetime.
// It is not safe for concurrent use: the engine is single-threaded
// cooperative, matching the one suspendable parse coroutine it models.
type Driver struct {
	mime   string
	opts   Options
	logger *slog.Logger

	buf      *streambuf.Buffer
	counters frame.Counters
	parser   codecParser
	// codec is the last codec tag identified before a Flush reset the parser.
	codec string
}

// New constructs a Driver for mime, one of audio/mpeg, audio/aac,
// audio/aacp, audio/flac, audio/ogg, or application/ogg. Any other mime is
// an immediate error.
func New(mime string, opts Options) (*Driver, error) {
	var logger *slog.Logger
	if opts.EnableLogging {
		logger = slog.Default()
	}
	d := &Driver{mime: mime, opts: opts, logger: logger, buf: streambuf.New()}
	parser, err := d.newParser()
	if err != nil {
		return nil, err
	}
	d.parser = parser
	return d, nil
}

func (d *Driver) newParser() (codecParser, error) {
	switch d.mime {
	case "audio/mpeg":
		return mpeg.New(d.logger, d.mpegUpdate), nil
	case "audio/aac", "audio/aacp":
		return aac.New(d.logger, d.aacUpdate), nil
	case "audio/flac":
		return flacframe.New(d.logger, d.flacUpdate), nil
	case "audio/ogg", "application/ogg":
		return ogg.New(d.logger, d.opts.OnCodec, d.oggUpdate), nil
	default:
		return nil, fmt.Errorf("demux: unsupported mime %q", d.mime)
	}
}

func (d *Driver) mpegUpdate(h *mpeg.Header, ts float64) {
	if d.opts.OnCodecUpdate != nil {
		d.opts.OnCodecUpdate(h, ts)
	}
}

func (d *Driver) aacUpdate(h *aac.Header, ts float64) {
	if d.opts.OnCodecUpdate != nil {
		d.opts.OnCodecUpdate(h, ts)
	}
}

func (d *Driver) flacUpdate(h *flacframe.Header, ts float64) {
	if d.opts.OnCodecUpdate != nil {
		d.opts.OnCodecUpdate(h, ts)
	}
}

func (d *Driver) oggUpdate(h frame.Header, ts float64) {
	if d.opts.OnCodecUpdate != nil {
		d.opts.OnCodecUpdate(h, ts)
	}
}

// Codec reports the current detected codec string, "" until known (only
// possible before the first Ogg page is identified; every other mime
// family's codec is fixed at construction).
func (d *Driver) Codec() string {
	if c := d.parser.Codec(); c != "" {
		return c
	}
	return d.codec
}

// ParseChunk appends chunk to the stream and returns every frame that could
// be fully decoded from the buffered bytes so far.
func (d *Driver) ParseChunk(chunk []byte) ([]Frame, error) {
	d.buf.Append(chunk)
	return d.drain()
}

// Flush tells the driver no more bytes are coming, drains any frames that
// can be emitted from a best-effort partial read of whatever remains
// buffered, then resets the driver (fresh header cache, zeroed counters) so
// it is ready to parse a new stream of the same mime type.
func (d *Driver) Flush() ([]Frame, error) {
	d.buf.SetFlushing()
	frames, err := d.drain()
	if c := d.parser.Codec(); c != "" {
		d.codec = c
	}
	d.parser.Reset()
	d.buf = streambuf.New()
	d.counters = frame.Counters{}
	return frames, err
}

// ParseAll is parseChunk(data) followed by flush(), concatenated.
func (d *Driver) ParseAll(data []byte) ([]Frame, error) {
	frames, err := d.ParseChunk(data)
	if err != nil {
		return frames, err
	}
	rest, err := d.Flush()
	return append(frames, rest...), err
}

func (d *Driver) drain() ([]Frame, error) {
	var out []Frame
	for {
		emission, consumed, err := d.parser.TryParse(d.buf, &d.counters)
		if err != nil {
			return out, err
		}
		if consumed == 0 {
			return out, nil
		}
		d.buf.Advance(consumed)
		if emission != nil {
			out = append(out, emission)
		}
	}
}
