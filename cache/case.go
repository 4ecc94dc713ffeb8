package cache

import (
	"strings"
	"unicode"
)

// snakeName turns a qualified callable name such as "mod.(*Canvas).Line" or
// "extendLineBatch" into a key-safe snake_case segment ("mod_canvas_line",
// "extend_line_batch"). Punctuation never survives, so the result can sit
// between KeySeparator delimiters and in file names.
func snakeName(name string) string {
	var words []string
	var word []rune

	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			// split "lineBatch" and the tail of "HTTPServer" before "Server"
			if len(word) > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			word = append(word, r)
		case unicode.IsLower(r):
			word = append(word, r)
		case unicode.IsDigit(r):
			if len(word) > 0 && !unicode.IsDigit(runes[i-1]) {
				flush()
			}
			word = append(word, r)
		default:
			flush()
		}
	}
	flush()

	return strings.Join(words, "_")
}
