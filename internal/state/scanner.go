// Package state locates JSON objects that a page embeds in inline scripts as
// `<marker> = {...};`.
package state

import (
	"encoding/json"
	"strings"

	"github.com/famomatic/bvdl/internal/types"
)

const (
	// InitialStateMarker precedes the bootstrap state of the detail page.
	InitialStateMarker = "window.__INITIAL_STATE__"
	// PlayInfoMarker precedes the play-info state of a part view.
	PlayInfoMarker = "window.__playinfo__"
)

// Locate returns the script that assigns an object to marker and contains
// every token in required. Scripts that only read marker are skipped. When no
// script assigns, the first one mentioning marker is returned so that Extract
// can report what is wrong with it.
func Locate(scripts []string, marker string, required ...string) (string, error) {
	var fallback string
	found := false
	for _, s := range scripts {
		if !strings.Contains(s, marker) || !containsAll(s, required) {
			continue
		}
		if assigns(s, marker) {
			return s, nil
		}
		if !found {
			fallback, found = s, true
		}
	}
	if found {
		return fallback, nil
	}
	return "", &types.StateMarkerNotFoundError{Marker: marker}
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}

// assigns reports whether some occurrence of marker in script is followed by
// `= {`.
func assigns(script, marker string) bool {
	if marker == "" {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(script[offset:], marker)
		if i < 0 {
			return false
		}
		pos := offset + i + len(marker)
		if _, ok := objectStart(script, pos); ok {
			return true
		}
		offset = pos
	}
}

// Extract returns the object literal assigned to marker inside script.
//
// The object is delimited by counting braces from the first `{` after the
// assignment to its matching `}`. Braces inside quoted strings are ignored,
// so trailing code after the object never leaks into the result.
func Extract(script, marker string) (string, error) {
	if marker == "" {
		return "", &types.MalformedStateError{Reason: "empty marker"}
	}
	found := false
	offset := 0
	for {
		i := strings.Index(script[offset:], marker)
		if i < 0 {
			break
		}
		found = true
		pos := offset + i + len(marker)
		if start, ok := objectStart(script, pos); ok {
			end, err := matchBrace(script, start)
			if err != nil {
				return "", &types.MalformedStateError{Marker: marker, Reason: err.Error()}
			}
			return script[start : end+1], nil
		}
		offset = pos
	}
	if !found {
		return "", &types.StateMarkerNotFoundError{Marker: marker}
	}
	return "", &types.MalformedStateError{Marker: marker, Reason: "no object literal assigned to marker"}
}

// ExtractInto extracts the object after marker and decodes it into v.
func ExtractInto(script, marker string, v any) error {
	raw, err := Extract(script, marker)
	if err != nil {
		return err
	}
	return Unmarshal(marker, []byte(raw), v)
}

// Unmarshal decodes raw state JSON, reporting syntax errors as malformed state.
func Unmarshal(marker string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &types.MalformedStateError{Marker: marker, Reason: "invalid json", Err: err}
	}
	return nil
}

// objectStart skips `\s*=\s*` after a marker and reports the position of `{`.
func objectStart(s string, pos int) (int, bool) {
	pos = skipSpace(s, pos)
	if pos >= len(s) || s[pos] != '=' {
		return 0, false
	}
	pos = skipSpace(s, pos+1)
	if pos >= len(s) || s[pos] != '{' {
		return 0, false
	}
	return pos, true
}

func skipSpace(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

type scanError string

func (e scanError) Error() string { return string(e) }

// matchBrace returns the index of the `}` closing the `{` at start.
func matchBrace(s string, start int) (int, error) {
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	if quote != 0 {
		return 0, scanError("unterminated string literal")
	}
	return 0, scanError("unbalanced braces")
}
