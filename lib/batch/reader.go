package batch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize limits a single message, larger than the default server request body
const maxLineSize = 16 * 1024 * 1024

// ReadMessages reads one message per line. UTF-8 is assumed unless the input starts with
// a UTF-16 or UTF-8 byte order mark. Lines end with \n, \r\n, \r and the unicode line
// and paragraph separators. Lines are trimmed, blank lines dropped.
func ReadMessages(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, xunicode.BOMOverride(xunicode.UTF8.NewDecoder()))
	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split((&lineSplitter{}).split)

	res := []string{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res = append(res, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return res, nil
}

// lineSplitter is a bufio.SplitFunc source remembering how far the pending data was checked,
// so a long line is not rescanned on every read.
type lineSplitter struct {
	checked int
}

func (s *lineSplitter) split(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := s.checked; i < len(data); {
		if !atEOF && !utf8.FullRune(data[i:]) {
			s.checked = i
			return 0, nil, nil
		}
		r, size := utf8.DecodeRune(data[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		end := i + size
		if r == '\r' {
			if end == len(data) && !atEOF {
				s.checked = i // wait for possible \n
				return 0, nil, nil
			}
			if end < len(data) && data[end] == '\n' {
				end++
			}
		}
		s.checked = 0
		return end, data[:i], nil
	}

	if atEOF && len(data) > 0 {
		s.checked = 0
		return len(data), data, nil
	}
	s.checked = len(data)
	return 0, nil, nil
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
