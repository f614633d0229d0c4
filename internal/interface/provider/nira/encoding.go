package nira

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var errUndecodable = errors.New("response is not valid JSON in any known encoding")

var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1256", charmap.Windows1256},
	{"iso-8859-1", charmap.ISO8859_1},
}

// recoverJSON returns body as valid UTF-8 JSON. It reinterprets the bytes as
// Windows-1256, then Latin-1, then drops invalid UTF-8 sequences, accepting
// the first candidate that parses. As a last resort it cleans string values
// only, leaving keys as they are. The name of the step that succeeded is
// returned for logging.
func recoverJSON(body []byte) ([]byte, string, error) {
	if utf8.Valid(body) && gjson.ValidBytes(body) {
		return body, "utf-8", nil
	}

	for _, candidate := range legacyEncodings {
		out, err := candidate.enc.NewDecoder().Bytes(body)
		if err == nil && gjson.ValidBytes(out) {
			return out, candidate.name, nil
		}
	}

	if stripped := bytes.ToValidUTF8(body, nil); gjson.ValidBytes(stripped) {
		return stripped, "stripped", nil
	}

	if sanitized := sanitizeStringValues(body); gjson.ValidBytes(sanitized) {
		return sanitized, "sanitized", nil
	}
	return nil, "", errUndecodable
}

// sanitizeStringValues removes invalid UTF-8 and raw control bytes from JSON
// string values. Object keys are copied untouched.
func sanitizeStringValues(body []byte) []byte {
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); {
		if body[i] != '"' {
			out = append(out, body[i])
			i++
			continue
		}

		end, closed := stringEnd(body, i)
		if isKey(body, end) {
			out = append(out, body[i:end]...)
		} else {
			content := body[i+1 : end]
			if closed {
				content = body[i+1 : end-1]
			}
			out = append(out, '"')
			out = append(out, cleanString(content)...)
			out = append(out, '"')
		}
		i = end
	}
	return out
}

// stringEnd returns the index just past the closing quote of the string
// starting at start. An unterminated string runs to the end of body.
func stringEnd(body []byte, start int) (int, bool) {
	for j := start + 1; j < len(body); j++ {
		switch body[j] {
		case '\\':
			j++
		case '"':
			return j + 1, true
		}
	}
	return len(body), false
}

func isKey(body []byte, end int) bool {
	for j := end; j < len(body); j++ {
		switch body[j] {
		case ' ', '\t', '\r', '\n':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}

func cleanString(s []byte) []byte {
	s = bytes.ToValidUTF8(s, nil)
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 {
			continue
		}
		if c == '\\' {
			if i+1 >= len(s) {
				continue
			}
			out = append(out, c, s[i+1])
			i++
			continue
		}
		out = append(out, c)
	}
	return out
}
