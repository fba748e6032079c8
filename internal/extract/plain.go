package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as string. Invalid UTF-8 sequences become the
// replacement character and Windows line endings are folded to "\n".
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
