package jpeg

import "bytes"

// JPEG SOI marker followed by the first segment marker.
// https://www.garykessler.net/library/file_sigs.html
var magic = []byte{0xFF, 0xD8, 0xFF}

func Test(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}
