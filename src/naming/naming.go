package naming

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Fields are the values substituted into a filename template.
type Fields struct {
	Name    string // base file name without extension
	Fmt     string // format short name
	Quality int    // quality percentage
	Width   int    // configured long edge
	Ext     string
}

// Format replaces {name} {fmt} {q} {w} and {ext} in template. Any other
// brace token is left as is.
func Format(template string, f Fields) string {
	return strings.NewReplacer(
		"{name}", f.Name,
		"{fmt}", f.Fmt,
		"{q}", strconv.Itoa(f.Quality),
		"{w}", strconv.Itoa(f.Width),
		"{ext}", f.Ext,
	).Replace(template)
}

// Percent turns a quality factor in (0,1] into an integer percentage.
func Percent(quality float64) int {
	return int(math.Round(quality * 100))
}

func BaseName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
