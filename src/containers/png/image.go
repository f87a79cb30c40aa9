package png

import "bytes"

// PNG signature.
// https://www.garykessler.net/library/file_sigs.html
var magic = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func Test(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}
