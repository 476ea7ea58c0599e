// Package extract locates the JSON object inside free-form model output.
// Models wrap answers in markdown fences, precede them with prose, or echo an
// example before the real answer; Object handles all three.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMalformedResponse means no parseable JSON object was found.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrAmbiguousResponse means two different objects tied for the longest valid span.
	ErrAmbiguousResponse = fmt.Errorf("%w: ambiguous JSON candidates", ErrMalformedResponse)
)

// maxStarts bounds the number of '{' positions scanned per block.
const maxStarts = 512

var fenceRe = regexp.MustCompile("(?s)```[ \t]*(?:[A-Za-z0-9_-]+)?[ \t]*\r?\n?(.*?)```")

// Object returns the JSON object embedded in raw. Fenced code blocks are
// searched first; when none of them holds a valid object the whole text is
// scanned. Numbers are decoded as json.Number.
func Object(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var fenced []string
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		fenced = append(fenced, m[1])
	}
	if len(fenced) > 0 {
		obj, err := longestValid(Spans(fenced...))
		if err == nil || errors.Is(err, ErrAmbiguousResponse) {
			return obj, err
		}
	}

	obj, err := longestValid(Spans(raw))
	if err != nil {
		return nil, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	return obj, nil
}

// Spans returns every balanced {...} span in the given texts, including
// nested ones. Brackets inside string literals are ignored.
func Spans(texts ...string) []string {
	var out []string
	for _, text := range texts {
		starts := 0
		for i := 0; i < len(text) && starts < maxStarts; i++ {
			if text[i] != '{' {
				continue
			}
			starts++
			if end := matchBrace(text, i); end > 0 {
				out = append(out, text[i:end+1])
			}
		}
	}
	return out
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func longestValid(spans []string) (map[string]any, error) {
	var (
		best    map[string]any
		bestRaw string
		tied    bool
	)
	for _, s := range spans {
		if len(s) < len(bestRaw) {
			continue
		}
		obj, err := decode(s)
		if err != nil {
			continue
		}
		switch {
		case best == nil || len(s) > len(bestRaw):
			best, bestRaw, tied = obj, s, false
		case s != bestRaw:
			tied = true
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no parseable JSON object", ErrMalformedResponse)
	}
	if tied {
		return nil, ErrAmbiguousResponse
	}
	return best, nil
}

func decode(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after object")
	}
	return obj, nil
}
