// Package archive stores finished interview transcripts as JSON objects
// outside the primary database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/interview-me/internal/model"
)

// Store writes objects by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

// Transcript is the archived form of one interview attempt.
type Transcript struct {
	InterviewID string          `json:"interviewId"`
	UserID      string          `json:"userId"`
	FeedbackID  string          `json:"feedbackId"`
	Messages    []model.Message `json:"messages"`
	ArchivedAt  time.Time       `json:"archivedAt"`
}

// TranscriptKey is the object key of an archived transcript.
func TranscriptKey(userID, interviewID, feedbackID string) string {
	return path.Join("transcripts", userID, interviewID, feedbackID+".json")
}

// PutTranscript encodes t and stores it under TranscriptKey.
func PutTranscript(ctx context.Context, s Store, t Transcript) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("archive: encoding transcript: %w", err)
	}
	key := TranscriptKey(t.UserID, t.InterviewID, t.FeedbackID)
	if err := s.Put(ctx, key, "application/json", bytes.NewReader(data)); err != nil {
		return "", err
	}
	return key, nil
}

// Discard drops everything. It is the store used when archiving is off.
type Discard struct{}

func (Discard) Put(context.Context, string, string, io.Reader) error { return nil }

// Local writes objects below a base directory.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) Put(ctx context.Context, key, _ string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("archive: invalid key %q", key)
	}

	full := filepath.Join(l.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("archive: open file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("archive: write %s: %w", key, err)
	}
	return f.Close()
}
