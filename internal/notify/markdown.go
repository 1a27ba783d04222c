package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
)

const previewLimit = 100

// MarkdownLog appends routed communications to a daily Markdown file in dir.
type MarkdownLog struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

// NewMarkdownLog writes one file per day of loc (UTC when nil).
func NewMarkdownLog(dir string, loc *time.Location) *MarkdownLog {
	if loc == nil {
		loc = time.UTC
	}

	return &MarkdownLog{dir: dir, loc: loc}
}

// DailyLogPath returns the log file of the day t falls on in loc.
func DailyLogPath(dir string, t time.Time, loc *time.Location) string {
	return filepath.Join(dir, t.In(loc).Format("2006-01-02")+"_onetalk-communications.md")
}

func (l *MarkdownLog) Publish(_ context.Context, event domain.Event) error {
	const op = "internal.notify.MarkdownLog.Publish"

	if event.Type != domain.EventCommunicationRouted {
		return nil
	}

	comm := event.Communication

	user := "unassigned"
	if comm.UserID != nil {
		user = *comm.UserID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n## Communication %s\n", shortID(comm.ID))
	fmt.Fprintf(&b, "**Time:** %s\n", comm.CreatedAt.In(l.loc).Format(time.RFC3339))
	fmt.Fprintf(&b, "**Department:** %s\n", comm.DepartmentID)
	fmt.Fprintf(&b, "**Assigned User:** %s\n", user)
	fmt.Fprintf(&b, "**Type:** %s\n", comm.Type)
	fmt.Fprintf(&b, "**Preview:** %s\n\n", preview(comm.Content))

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("%s: failed to create log dir: %w", op, err)
	}

	f, err := os.OpenFile(DailyLogPath(l.dir, comm.CreatedAt, l.loc), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%s: failed to open log file: %w", op, err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("%s: failed to append entry: %w", op, err)
	}

	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}

	return string(runes[:previewLimit]) + "..."
}
