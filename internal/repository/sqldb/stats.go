package sqldb

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
)

type StatsRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewStatsRepository(store *Store, log *slog.Logger) *StatsRepository {
	return &StatsRepository{
		log: log,
		sq:  store.builder(),
	}
}

// IncrementStats is a single upsert so concurrent events for the same
// (number, date) key add up instead of overwriting each other.
func (sr *StatsRepository) IncrementStats(ctx context.Context, ext sqlx.ExtContext, number string, date string, delta domain.StatsDelta) error {
	const op = "internal.repository.sqldb.IncrementStats"

	query, args, err := sr.sq.Insert("phone_stats").
		Columns("phone_number", "date", "total_calls", "total_sms", "total_duration").
		Values(number, date, delta.Calls, delta.SMS, delta.Duration).
		Suffix(`ON CONFLICT (phone_number, date) DO UPDATE SET
            total_calls = phone_stats.total_calls + EXCLUDED.total_calls,
            total_sms = phone_stats.total_sms + EXCLUDED.total_sms,
            total_duration = phone_stats.total_duration + EXCLUDED.total_duration`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to upsert phone stats: %w", op, err)
	}

	return nil
}

func (sr *StatsRepository) DailyStats(ctx context.Context, ext sqlx.ExtContext, date string) ([]domain.PhoneStats, error) {
	const op = "internal.repository.sqldb.DailyStats"

	registered := sr.sq.Select(
		"p.phone_number",
		"p.department_id",
		"COALESCE(s.total_calls, 0) AS total_calls",
		"COALESCE(s.total_sms, 0) AS total_sms",
		"COALESCE(s.total_duration, 0) AS total_duration",
	).
		From("phone_numbers p").
		LeftJoin("phone_stats s ON s.phone_number = p.phone_number AND s.date = ?", date)

	unregistered := sr.sq.Select(
		"s.phone_number",
		"CAST(NULL AS TEXT) AS department_id",
		"s.total_calls",
		"s.total_sms",
		"s.total_duration",
	).
		From("phone_stats s").
		Where(sq.Eq{"s.date": date}).
		Where("NOT EXISTS (SELECT 1 FROM phone_numbers p WHERE p.phone_number = s.phone_number)")

	unregSQL, unregArgs, err := unregistered.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build unregistered query: %w", op, err)
	}

	query, args, err := registered.
		Suffix("UNION ALL "+unregSQL+" ORDER BY phone_number", unregArgs...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build daily stats query: %w", op, err)
	}

	rows := make([]domain.PhoneStats, 0)
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select daily stats: %w", op, err)
	}

	for i := range rows {
		rows[i].Date = date
	}

	return rows, nil
}
