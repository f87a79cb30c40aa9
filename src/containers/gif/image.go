package gif

import "bytes"

// GIF87a / GIF89a header.
// https://www.garykessler.net/library/file_sigs.html
func Test(data []byte) bool {
	return len(data) >= 6 &&
		bytes.HasPrefix(data, []byte("GIF8")) &&
		(data[4] == '7' || data[4] == '9') &&
		data[5] == 'a'
}
