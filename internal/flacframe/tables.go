// ABOUTME: FLAC frame header field decode tables (blocksize, samplerate, bitdepth)
// ABOUTME: Values drawn from the FLAC format's fixed coded-value tables
package flacframe

// blockSizeTable maps the 4-bit blocksize field to a fixed block size, or 0
// when the value requires reading an "end of header" field instead (8-bit or
// 16-bit variants, handled separately in header.go).
var blockSizeTable = [16]int{
	0, 192, 576, 1152, 2304, 4608, 0, 0,
	0, 256, 512, 1024, 2048, 4096, 8192, 16384,
}

// sampleRateTable maps the 4-bit samplerate field to a fixed rate in Hz, or 0
// when the value requires an "end of header" field (8/16-bit Hz or kHz) or is
// reserved (15).
var sampleRateTable = [16]int{
	0, 88200, 176400, 192000, 8000, 16000, 22050, 24000,
	32000, 44100, 48000, 96000, 0, 0, 0, 0,
}

// bitDepthTable maps the 3-bit sample-size field to a bit depth, or 0 when the
// value is reserved or means "get from STREAMINFO" (not modeled here; native
// FLAC header decoding treats 0 as reserved/unsupported).
var bitDepthTable = [8]int{
	0, 8, 12, 0, 16, 20, 24, 0,
}

func channelsFromAssignment(chanAssign uint32) int {
	switch {
	case chanAssign <= 7:
		return int(chanAssign) + 1
	case chanAssign <= 11:
		return 2
	default:
		return 0 // 12-15 reserved
	}
}

func channelModeFromAssignment(chanAssign uint32) string {
	switch {
	case chanAssign <= 7:
		return "independent"
	case chanAssign == 8:
		return "left/right"
	case chanAssign == 9:
		return "left/side"
	case chanAssign == 10:
		return "right/side"
	case chanAssign == 11:
		return "mid/side"
	default:
		return "reserved"
	}
}
