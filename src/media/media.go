package media

import (
	"fmt"
	"strings"
)

var ErrUnknownFormat = fmt.Errorf("unknown image format")

type Type string

const (
	GIF  Type = "gif"
	JPEG Type = "jpeg"
	PNG  Type = "png"
	WEBP Type = "webp"
)

// Outputs lists the formats a job can be compressed into, in emit order.
var Outputs = []Type{JPEG, WEBP}

func (t Type) MIME() string {
	return "image/" + string(t)
}

func (t Type) Ext() string {
	if t == JPEG {
		return "jpg"
	}

	return string(t)
}

// SupportsAlpha reports whether the format can carry a transparency channel.
func (t Type) SupportsAlpha() bool {
	switch t {
	case PNG, WEBP, GIF:
		return true
	}

	return false
}

// Output reports whether jobs may be compressed into t.
func (t Type) Output() bool {
	return t == JPEG || t == WEBP
}

// ParseOutput resolves a user supplied output format name.
func ParseOutput(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "webp":
		return WEBP, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}
