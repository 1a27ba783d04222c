// Package report writes the daily usage report into the insights directory.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/YusovID/onetalk-router/pkg/logger/sl"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type StatsSource interface {
	DailyStats(ctx context.Context, date string) ([]service.LineStats, error)
}

type DepartmentSource interface {
	DepartmentStatus(ctx context.Context, departmentID string) ([]domain.DepartmentWithMembers, error)
}

type Reporter struct {
	stats StatsSource
	depts DepartmentSource
	dir   string
	loc   *time.Location
	log   *slog.Logger
	now   func() time.Time
}

func New(stats StatsSource, depts DepartmentSource, dir string, loc *time.Location, log *slog.Logger) *Reporter {
	if loc == nil {
		loc = time.UTC
	}

	return &Reporter{
		stats: stats,
		depts: depts,
		dir:   dir,
		loc:   loc,
		log:   log,
		now:   time.Now,
	}
}

// Path returns the report file for date (YYYY-MM-DD).
func Path(dir, date string) string {
	return filepath.Join(dir, date+"_onetalk-daily-report.md")
}

// Generate writes the report for date, overwriting an earlier one.
func (r *Reporter) Generate(ctx context.Context, date string) (string, error) {
	const op = "internal.report.Generate"

	lines, err := r.stats.DailyStats(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%s: failed to load stats: %w", op, err)
	}

	depts, err := r.depts.DepartmentStatus(ctx, "")
	if err != nil {
		return "", fmt.Errorf("%s: failed to load departments: %w", op, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("%s: failed to create report dir: %w", op, err)
	}

	path := Path(r.dir, date)
	if err := os.WriteFile(path, []byte(Render(date, r.now().In(r.loc), lines, depts)), 0o644); err != nil {
		return "", fmt.Errorf("%s: failed to write report: %w", op, err)
	}

	r.log.Info("daily report written", slog.String("op", op), slog.String("path", path))

	return path, nil
}

// Schedule runs Generate for the previous day on every tick of expr until
// ctx is done.
func (r *Reporter) Schedule(ctx context.Context, expr string) error {
	const op = "internal.report.Schedule"

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("%s: invalid schedule %q: %w", op, expr, err)
	}

	c := cron.New(cron.WithLocation(r.loc), cron.WithParser(cronParser))
	c.Schedule(schedule, cron.FuncJob(func() {
		date := domain.StatsDate(r.now().In(r.loc).AddDate(0, 0, -1))
		if _, err := r.Generate(ctx, date); err != nil {
			r.log.Error("failed to generate daily report", slog.String("op", op), slog.String("date", date), sl.Err(err))
		}
	}))

	c.Start()
	r.log.Info("daily report scheduled", slog.String("op", op), slog.String("schedule", expr))

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()

	return nil
}

func Render(date string, generated time.Time, lines []service.LineStats, depts []domain.DepartmentWithMembers) string {
	var (
		b       strings.Builder
		calls   int
		sms     int
		minutes float64
	)

	for _, l := range lines {
		calls += l.Calls
		sms += l.SMS
		minutes += l.DurationMinutes
	}

	fmt.Fprintf(&b, "# OneTalk Daily Report %s\n\n", date)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", generated.Format(time.RFC3339))

	b.WriteString("## Totals\n")
	fmt.Fprintf(&b, "- **Calls:** %d\n", calls)
	fmt.Fprintf(&b, "- **SMS:** %d\n", sms)
	fmt.Fprintf(&b, "- **Talk time:** %.1f min\n\n", minutes)

	b.WriteString("## Lines\n")
	if len(lines) == 0 {
		b.WriteString("No lines registered.\n\n")
	} else {
		b.WriteString("| Phone number | Department | Calls | SMS | Minutes |\n")
		b.WriteString("|---|---|---|---|---|\n")

		for _, l := range lines {
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %.1f |\n", l.PhoneNumber, l.Department, l.Calls, l.SMS, l.DurationMinutes)
		}

		b.WriteString("\n")
	}

	b.WriteString("## Departments\n")
	if len(depts) == 0 {
		b.WriteString("No departments.\n")
		return b.String()
	}

	b.WriteString("| Department | Members | Available | Lines |\n")
	b.WriteString("|---|---|---|---|\n")

	for _, d := range depts {
		available := 0
		for _, m := range d.Members {
			if m.Status == domain.UserAvailable {
				available++
			}
		}

		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", d.Name, len(d.Members), available, len(d.PhoneNumbers))
	}

	return b.String()
}
