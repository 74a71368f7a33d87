// ABOUTME: ID3v2 tag header recognition for the MPEG family
// ABOUTME: Only enough to skip a leading tag; payload interpretation is out of scope
package id3

// HeaderSize is the fixed size of an ID3v2 tag header.
const HeaderSize = 10

// synchsafe28 decodes ID3's 7-bits-per-byte length encoding.
func synchsafe28(b [4]byte) int {
	return int(b[0])<<21 | int(b[1])<<14 | int(b[2])<<7 | int(b[3])
}

// TagLength inspects the start of data and, if it begins with an ID3v2
// "ID3" magic, returns the total byte length of the tag (header plus
// payload) and true. Otherwise it returns 0, false. The caller is
// responsible for confirming at least HeaderSize bytes are present before
// calling.
func TagLength(data []byte) (int, bool) {
	if len(data) < HeaderSize {
		return 0, false
	}
	if data[0] != 'I' || data[1] != 'D' || data[2] != '3' {
		return 0, false
	}
	var lenBytes [4]byte
	copy(lenBytes[:], data[6:10])
	dataLength := synchsafe28(lenBytes)
	return HeaderSize + dataLength, true
}
