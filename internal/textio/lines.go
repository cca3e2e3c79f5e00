// Package textio reads line-oriented text files.
package textio

import (
	"bufio"
	"errors"
	"io"
)

// MaxLineSize is the longest line handed to callers. Longer lines are
// skipped as unrecognized.
const MaxLineSize = 1 << 20

// EachLine calls fn for every line of r without its line ending. Lines
// longer than maxLen bytes are skipped but still counted in lineNo. It
// returns the number of skipped lines.
func EachLine(r io.Reader, maxLen int, fn func(lineNo int, line string) error) (int, error) {
	br := bufio.NewReader(r)
	var buf []byte
	lineNo, skipped := 0, 0
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return skipped, nil
			}
			return skipped, err
		}

		// chunk is only valid until the next read
		if !tooLong {
			if len(buf)+len(chunk) > maxLen {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		lineNo++
		if tooLong {
			skipped++
		} else if err := fn(lineNo, string(buf)); err != nil {
			return skipped, err
		}
		buf = buf[:0]
		tooLong = false
	}
}
