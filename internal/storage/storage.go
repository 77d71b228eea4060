package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

const ContentTypePDF = "application/pdf"

// ObjectStore keeps exported files. Upload hands back a URL customers and
// advisors can open.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// SubmissionKey is where a link's exported PDF lives. Re-exporting on the same
// day overwrites the previous file.
func SubmissionKey(linkID, fileName string, now time.Time) string {
	return path.Join("submissions", linkID, now.UTC().Format("2006/01/02"), cleanName(fileName))
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		return "export.pdf"
	}
	return name
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
