// ABOUTME: The capability every codec parser dispatched to from inside an Ogg logical stream implements
package ogg

import "github.com/framewise-audio/demux/internal/frame"

// NestedParser is chosen once, at first-page codec identification, and
// stored as the container's active variant for the rest of the stream.
type NestedParser interface {
	Codec() string
	ParseOggPage(page *frame.OggPage, pageIndex int, counters *frame.Counters) error
}
