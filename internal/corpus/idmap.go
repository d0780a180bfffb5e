package corpus

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"umpire-rules-rag/internal/models"

	"github.com/hack-pad/hackpadfs"
)

var (
	offsetColumns = []string{"offset", "id", "line", "row", "index"}
	headerColumns = []string{"rule", "rule_sub", "rulesub", "canonical_id", "canonical", "source", "file", "doc_id"}
)

// IDMap resolves corpus offsets to canonical rule numbering
type IDMap struct {
	entries map[int]models.IDMapEntry
}

// LoadIDMap reads the comma-delimited ID map from fsys
func LoadIDMap(fsys hackpadfs.FS, path string) (*IDMap, error) {
	content, err := hackpadfs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read id map %s: %v", ErrNotLoaded, path, err)
	}

	m, err := ParseIDMap(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse id map %s: %w", path, err)
	}
	return m, nil
}

// ParseIDMap decodes ID map rows. A header row is optional and is recognized by
// its column names. Without one the first column is the offset when it is an
// integer (otherwise a source key, and the row position is the offset), the last
// column is the canonical id, and rule and rule_sub are columns two and three
// when there are at least four columns.
func ParseIDMap(content []byte) (*IDMap, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	m := &IDMap{entries: make(map[int]models.IDMapEntry)}
	if len(rows) == 0 {
		return m, nil
	}

	offsetCol, ruleCol, subCol := 0, -1, -1
	start := 0
	if isHeader(rows[0]) {
		start = 1
		offsetCol = -1
		for i, name := range rows[0] {
			name = strings.ToLower(strings.TrimSpace(name))
			switch {
			case name == "rule":
				ruleCol = i
			case name == "rule_sub" || name == "rulesub":
				subCol = i
			case offsetCol == -1 && contains(offsetColumns, name):
				offsetCol = i
			}
		}
	} else {
		if _, err := strconv.Atoi(strings.TrimSpace(rows[0][0])); err != nil {
			offsetCol = -1
		}
		if len(rows[0]) >= 4 {
			ruleCol, subCol = 1, 2
		}
	}

	for i, row := range rows[start:] {
		if len(row) == 0 {
			continue
		}

		offset := i
		if offsetCol >= 0 {
			if offsetCol >= len(row) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(row[offsetCol]))
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid offset %q", i+start+1, row[offsetCol])
			}
			offset = n
		}

		entry := models.IDMapEntry{
			Offset:      offset,
			CanonicalID: strings.TrimSpace(row[len(row)-1]),
		}
		if ruleCol >= 0 && ruleCol < len(row) {
			entry.Rule = strings.TrimSpace(row[ruleCol])
		}
		if subCol >= 0 && subCol < len(row) {
			entry.RuleSub = strings.TrimSpace(row[subCol])
		}
		m.entries[offset] = entry
	}

	return m, nil
}

// NewIDMap builds an ID map from entries keyed by their offset
func NewIDMap(entries ...models.IDMapEntry) *IDMap {
	m := &IDMap{entries: make(map[int]models.IDMapEntry, len(entries))}
	for _, e := range entries {
		m.entries[e.Offset] = e
	}
	return m
}

// Lookup returns the row for offset
func (m *IDMap) Lookup(offset int) (models.IDMapEntry, bool) {
	if m == nil {
		return models.IDMapEntry{}, false
	}
	e, ok := m.entries[offset]
	return e, ok
}

// CanonicalID returns the canonical id for offset, or doc_<offset> when the
// map has no row for it
func (m *IDMap) CanonicalID(offset int) string {
	if e, ok := m.Lookup(offset); ok && e.CanonicalID != "" {
		return e.CanonicalID
	}
	return fmt.Sprintf("doc_%d", offset)
}

// Len returns the number of rows
func (m *IDMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func isHeader(row []string) bool {
	for _, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if contains(offsetColumns, name) || contains(headerColumns, name) {
			return true
		}
	}
	return false
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
