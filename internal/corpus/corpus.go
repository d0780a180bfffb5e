// Package corpus loads the rule-chunk corpus and its ID map.
// Both are read once at startup and are read-only afterwards.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"umpire-rules-rag/internal/models"

	"github.com/hack-pad/hackpadfs"
)

// ErrNotLoaded is returned when the corpus or ID map file cannot be read
var ErrNotLoaded = errors.New("corpus data not loaded")

// maxLineSize bounds a single JSONL record
const maxLineSize = 1 << 20

// Corpus is the ordered sequence of rule chunks; line order defines offset
type Corpus struct {
	FS     hackpadfs.FS
	Path   string
	chunks []models.RuleChunk
}

type chunkRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Define       string `json:"define"`
	CVerbatim    string `json:"c_verbatim"`
	VerbatimTerm string `json:"verbatimTerm"`
}

// LoadCorpus reads a line-delimited JSON corpus from fsys
func LoadCorpus(fsys hackpadfs.FS, path string) (*Corpus, error) {
	content, err := hackpadfs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read corpus %s: %v", ErrNotLoaded, path, err)
	}

	chunks, err := ParseChunks(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}

	return &Corpus{FS: fsys, Path: path, chunks: chunks}, nil
}

// ParseChunks decodes JSONL records. Blank lines still occupy an offset so that
// positions stay aligned with the vector index.
func ParseChunks(content []byte) ([]models.RuleChunk, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var chunks []models.RuleChunk
	offset := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		chunk := models.RuleChunk{Offset: offset}

		if line != "" {
			var rec chunkRecord
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, fmt.Errorf("line %d: %w", offset+1, err)
			}
			chunk.ID = rec.ID
			chunk.Text = rec.Text
			chunk.Define = strings.TrimSpace(rec.Define)
			chunk.VerbatimTerm = strings.TrimSpace(rec.VerbatimTerm)
			if chunk.VerbatimTerm == "" {
				chunk.VerbatimTerm = strings.TrimSpace(rec.CVerbatim)
			}
		}

		chunks = append(chunks, chunk)
		offset++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}

	return chunks, nil
}

// NewCorpus wraps already-decoded chunks, renumbering their offsets
func NewCorpus(chunks []models.RuleChunk) *Corpus {
	out := make([]models.RuleChunk, len(chunks))
	for i, c := range chunks {
		c.Offset = i
		out[i] = c
	}
	return &Corpus{chunks: out}
}

// Len returns the number of chunks
func (c *Corpus) Len() int {
	return len(c.chunks)
}

// Chunk returns the chunk at offset
func (c *Corpus) Chunk(offset int) (models.RuleChunk, bool) {
	if offset < 0 || offset >= len(c.chunks) {
		return models.RuleChunk{}, false
	}
	return c.chunks[offset], true
}

// Available checks that the backing file is still reachable
func (c *Corpus) Available() error {
	if len(c.chunks) == 0 {
		return fmt.Errorf("%w: corpus is empty", ErrNotLoaded)
	}
	if c.FS == nil {
		return nil
	}
	if _, err := hackpadfs.Stat(c.FS, c.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s missing", ErrNotLoaded, c.Path)
		}
		return fmt.Errorf("%w: %v", ErrNotLoaded, err)
	}
	return nil
}
