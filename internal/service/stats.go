package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
)

// LineStats is the per-line daily usage summary.
type LineStats struct {
	PhoneNumber     string  `json:"phone_number"`
	Department      string  `json:"department"`
	Calls           int     `json:"calls"`
	SMS             int     `json:"sms"`
	DurationMinutes float64 `json:"duration_minutes"`
}

type StatsService interface {
	DailyStats(ctx context.Context, date string) ([]LineStats, error)
}

type StatsServiceImpl struct {
	BaseService
	stats repository.StatsRepository
	loc   *time.Location
}

func NewStatsService(db Transactor, log *slog.Logger, stats repository.StatsRepository, loc *time.Location) *StatsServiceImpl {
	if loc == nil {
		loc = time.UTC
	}

	return &StatsServiceImpl{
		BaseService: NewBaseService(db, log),
		stats:       stats,
		loc:         loc,
	}
}

// DailyStats reports usage for date (YYYY-MM-DD, today when empty).
// Unassigned lines are reported under the general department.
func (s *StatsServiceImpl) DailyStats(ctx context.Context, date string) ([]LineStats, error) {
	const op = "internal.service.stats.DailyStats"

	if date == "" {
		date = domain.StatsDate(s.now().In(s.loc))
	}

	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", apperrors.ErrInvalidRequest)
	}

	rows, err := s.stats.DailyStats(ctx, s.db, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]LineStats, 0, len(rows))
	for _, row := range rows {
		dept := deref(row.DepartmentID)
		if dept == "" {
			dept = domain.GeneralDepartment
		}

		result = append(result, LineStats{
			PhoneNumber:     row.PhoneNumber,
			Department:      dept,
			Calls:           row.TotalCalls,
			SMS:             row.TotalSMS,
			DurationMinutes: math.Round(float64(row.TotalDuration)/60*10) / 10,
		})
	}

	return result, nil
}
