package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadDescriptions reads a descriptions JSONL file, one entry per line.
// Blank lines are skipped.
func LoadDescriptions(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptions: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("descriptions line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read descriptions: %w", err)
	}
	return entries, nil
}

// Load reads a descriptions file and builds the catalog in one step.
func Load(path string) (*Catalog, error) {
	entries, err := LoadDescriptions(path)
	if err != nil {
		return nil, err
	}
	return Build(entries), nil
}
