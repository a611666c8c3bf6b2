package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// UpdateDuplicateFlags sets the top-level "duplicate" flag on description
// entries by file ID and writes the file back in place. Entries are handled
// as raw JSON objects so fields this package does not model survive the
// rewrite. Returns the updated entries.
func UpdateDuplicateFlags(path string, updates map[uint64]bool) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open descriptions: %w", err)
	}

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			f.Close()
			return nil, fmt.Errorf("descriptions line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read descriptions: %w", err)
	}
	f.Close()

	for _, entry := range entries {
		fid, ok := entryFileID(entry)
		if !ok {
			continue
		}
		if dup, ok := updates[fid]; ok {
			entry["duplicate"] = dup
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("rewrite descriptions: %w", err)
	}
	w := bufio.NewWriter(out)
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("marshal entry: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return nil, fmt.Errorf("flush descriptions: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close descriptions: %w", err)
	}
	return entries, nil
}

// JSON numbers decode as float64; file IDs are integral in practice.
func entryFileID(entry map[string]any) (uint64, bool) {
	v, ok := entry["file_id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return uint64(i), true
	default:
		return 0, false
	}
}
