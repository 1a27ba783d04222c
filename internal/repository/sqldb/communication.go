package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
)

var communicationColumns = []string{
	"id", "created_at", "from_number", "to_number", "user_id", "department_id", "type",
	"content", "status", "duration", "routed_number", "routing_method", "routing_reason", "ended_at",
}

type CommunicationRepository struct {
	log        *slog.Logger
	sq         sq.StatementBuilderType
	lockSuffix string
}

func NewCommunicationRepository(store *Store, log *slog.Logger) *CommunicationRepository {
	return &CommunicationRepository{
		log:        log,
		sq:         store.builder(),
		lockSuffix: store.lockSuffix(),
	}
}

func (cr *CommunicationRepository) CreateCommunication(ctx context.Context, ext sqlx.ExtContext, comm *domain.Communication) error {
	const op = "internal.repository.sqldb.CreateCommunication"

	query, args, err := cr.sq.Insert("communications").
		Columns(communicationColumns...).
		Values(
			comm.ID, comm.CreatedAt, comm.FromNumber, comm.ToNumber, comm.UserID, comm.DepartmentID, comm.Type,
			comm.Content, comm.Status, comm.Duration, comm.RoutedNumber, comm.RoutingMethod, comm.RoutingReason, comm.EndedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to insert communication: %w", op, err)
	}

	return nil
}

func (cr *CommunicationRepository) CreateCallRouting(ctx context.Context, ext sqlx.ExtContext, routing *domain.CallRouting) error {
	const op = "internal.repository.sqldb.CreateCallRouting"

	query, args, err := cr.sq.Insert("call_routing").
		Columns(
			"id", "communication_id", "from_number", "to_number", "routed_to_number", "routed_to_user",
			"department", "routing_reason", "created_at", "call_duration", "status",
		).
		Values(
			routing.ID, routing.CommunicationID, routing.FromNumber, routing.ToNumber, routing.RoutedToNumber,
			routing.RoutedToUser, routing.Department, routing.RoutingReason, routing.CreatedAt,
			routing.CallDuration, routing.Status,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to insert call routing: %w", op, err)
	}

	return nil
}

func (cr *CommunicationRepository) GetCommunication(ctx context.Context, ext sqlx.ExtContext, commID string) (*domain.Communication, error) {
	return cr.getCommunication(ctx, ext, commID, "")
}

func (cr *CommunicationRepository) GetCommunicationWithLock(ctx context.Context, tx *sqlx.Tx, commID string) (*domain.Communication, error) {
	return cr.getCommunication(ctx, tx, commID, cr.lockSuffix)
}

func (cr *CommunicationRepository) getCommunication(ctx context.Context, ext sqlx.ExtContext, commID, suffix string) (*domain.Communication, error) {
	const op = "internal.repository.sqldb.GetCommunication"

	builder := cr.sq.Select(communicationColumns...).
		From("communications").
		Where(sq.Eq{"id": commID})
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var comm domain.Communication
	if err := sqlx.GetContext(ctx, ext, &comm, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: communication with id '%s'", apperrors.ErrNotFound, commID)
		}

		return nil, fmt.Errorf("%s: failed to get communication: %w", op, err)
	}

	return &comm, nil
}

func (cr *CommunicationRepository) CompleteCall(ctx context.Context, ext sqlx.ExtContext, commID string, duration int, endedAt time.Time) (bool, error) {
	const op = "internal.repository.sqldb.CompleteCall"

	query, args, err := cr.sq.Update("communications").
		Set("status", domain.CommCompleted).
		Set("duration", duration).
		Set("ended_at", endedAt).
		Where(sq.Eq{"id": commID, "status": domain.CommActive}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: failed to complete communication: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return false, nil
	}

	query, args, err = cr.sq.Update("call_routing").
		Set("status", domain.CommCompleted).
		Set("call_duration", duration).
		Where(sq.Eq{"communication_id": commID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build call routing update query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("%s: failed to complete call routing: %w", op, err)
	}

	return true, nil
}

func (cr *CommunicationRepository) FindHistory(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.HistoryMatch, error) {
	const op = "internal.repository.sqldb.FindHistory"

	query, args, err := cr.sq.Select("department_id", "user_id", "COUNT(*) AS interaction_count").
		From("communications").
		Where(sq.Or{
			sq.Eq{"from_number": number},
			sq.Eq{"to_number": number},
		}).
		GroupBy("department_id", "user_id").
		OrderBy("interaction_count DESC", "MAX(created_at) DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var match domain.HistoryMatch
	if err := sqlx.GetContext(ctx, ext, &match, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: failed to select history: %w", op, err)
	}

	return &match, nil
}
