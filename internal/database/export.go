package database

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"umpire-rules-rag/internal/models"

	"github.com/hack-pad/hackpadfs"
)

// ExportColumns is the CSV header written by Export
var ExportColumns = []string{
	"id", "query_text", "division", "response", "timestamp", "session_id",
	"response_time", "query_type", "api_used", "tokens_used",
	"thumbs_up", "thumbs_down", "feedback_text", "rule_reference",
}

// Export writes every logged interaction to w as CSV and returns the row count
func (l *InteractionLog) Export(ctx context.Context, w io.Writer) (int, error) {
	rows, err := l.All(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	for _, in := range rows {
		if err := cw.Write(exportRecord(in)); err != nil {
			return 0, fmt.Errorf("failed to write interaction %d: %w", in.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(rows), nil
}

// ExportFile writes a timestamped backup into dir on fsys and returns its path
func (l *InteractionLog) ExportFile(ctx context.Context, fsys hackpadfs.FS, dir string, now time.Time) (string, int, error) {
	var buf bytes.Buffer
	n, err := l.Export(ctx, &buf)
	if err != nil {
		return "", 0, err
	}

	if dir != "" && dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, 0755); err != nil {
			return "", 0, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	name := path.Join(dir, "interactions-"+now.Format("20060102-150405")+".csv")
	if err := hackpadfs.WriteFullFile(fsys, name, buf.Bytes(), 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write backup %s: %w", name, err)
	}
	return name, n, nil
}

func exportRecord(in models.Interaction) []string {
	return []string{
		strconv.FormatInt(in.ID, 10),
		in.QueryText,
		in.Division,
		in.Response,
		in.Timestamp,
		in.SessionID,
		strconv.FormatFloat(in.ResponseTime, 'f', -1, 64),
		in.QueryType,
		in.APIUsed,
		strconv.Itoa(in.TokensUsed),
		optionalBool(in.ThumbsUp),
		optionalBool(in.ThumbsDown),
		optionalString(in.FeedbackText),
		optionalString(in.RuleReference),
	}
}

func optionalBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "1"
	}
	return "0"
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
