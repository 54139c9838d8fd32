package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Direction tells which side of an entry still has to be translated.
type Direction int

const (
	// Complete entries carry both sides.
	Complete Direction = iota
	// NeedsTarget entries only carry the source sentence.
	NeedsTarget
	// NeedsSource entries only carry the target sentence.
	NeedsSource
)

// Entry is one sentence pair read from a batch file
type Entry struct {
	Source    string
	Target    string
	Direction Direction
}

// ReadFile reads entries from a file. See Read for the accepted formats.
func ReadFile(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses one entry per line:
//   - "안녕하세요 = Hello" both sides provided
//   - "안녕하세요" source only, target will be translated
//   - "= Hello" target only, source will be translated
//
// Blank lines and lines starting with '#' are ignored.
func Read(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		source, target, found := strings.Cut(line, "=")
		if !found {
			entries = append(entries, Entry{Source: line, Direction: NeedsTarget})
			continue
		}

		source = strings.TrimSpace(source)
		target = strings.TrimSpace(target)

		switch {
		case source == "" && target != "":
			entries = append(entries, Entry{Target: target, Direction: NeedsSource})
		case source != "" && target != "":
			entries = append(entries, Entry{Source: source, Target: target, Direction: Complete})
		case source != "":
			entries = append(entries, Entry{Source: source, Direction: NeedsTarget})
		}
		// Lines with both sides empty ("=") are ignored
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan batch file: %w", err)
	}

	return entries, nil
}
