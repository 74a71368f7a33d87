// ABOUTME: Public entry point for the streaming audio bitstream demuxer
// ABOUTME: Wraps the internal codec parsers behind one MIME-dispatched Driver type
// Package demux parses MPEG audio, AAC-ADTS, FLAC, and Ogg-wrapped
// Opus/Vorbis/FLAC bitstreams incrementally as bytes arrive, without
// decoding audio samples.
//
// Construct a Driver for a declared MIME type, then push chunks as they
// arrive:
//
//	d, err := demux.New("audio/mpeg", demux.Options{})
//	frames, err := d.ParseChunk(chunk)
//	for _, f := range frames {
//	    switch v := f.(type) {
//	    case *demux.CodecFrame:
//	        // v.Data, v.Header, v.Samples, v.Duration
//	    case *demux.OggPage:
//	        // v.CodecFrames
//	    }
//	}
//	remaining, err := d.Flush()
//
// A Driver is reusable after Flush: it resets its internal header cache
// and counters and is ready for a new stream of the same MIME type.
package demux
