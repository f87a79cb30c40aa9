package utils

import "unsafe"

// B2S converts a byte slice to a string without copying. The slice must not be modified afterwards.
func B2S(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	return unsafe.String(&b[0], len(b))
}

func StringPointer(s string) *string {
	return &s
}
