package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
)

var phoneColumns = []string{
	"phone_number", "department_id", "user_id", "status", "type",
	"priority", "max_concurrent_calls", "current_calls", "created_at",
}

type PhoneRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewPhoneRepository(store *Store, log *slog.Logger) *PhoneRepository {
	return &PhoneRepository{
		log: log,
		sq:  store.builder(),
	}
}

func (pr *PhoneRepository) CreatePhone(ctx context.Context, ext sqlx.ExtContext, phone *domain.PhoneNumber) error {
	const op = "internal.repository.sqldb.CreatePhone"

	query, args, err := pr.sq.Insert("phone_numbers").
		Columns(phoneColumns...).
		Values(
			phone.Number, phone.DepartmentID, phone.UserID, phone.Status, phone.Type,
			phone.Priority, phone.MaxConcurrentCalls, phone.CurrentCalls, phone.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return &apperrors.DuplicateNumberError{Number: phone.Number}
		}

		return fmt.Errorf("%s: failed to insert phone number: %w", op, err)
	}

	pr.log.Debug("phone number inserted", slog.String("op", op), slog.String("number", phone.Number))

	return nil
}

func (pr *PhoneRepository) GetPhone(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.PhoneNumber, error) {
	const op = "internal.repository.sqldb.GetPhone"

	query, args, err := pr.sq.Select(phoneColumns...).
		From("phone_numbers").
		Where(sq.Eq{"phone_number": number}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var phone domain.PhoneNumber
	if err := sqlx.GetContext(ctx, ext, &phone, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: phone number '%s'", apperrors.ErrNotFound, number)
		}

		return nil, fmt.Errorf("%s: failed to get phone number: %w", op, err)
	}

	return &phone, nil
}

func (pr *PhoneRepository) ListAvailablePhones(ctx context.Context, ext sqlx.ExtContext, q domain.LineQuery) ([]domain.PhoneNumber, error) {
	const op = "internal.repository.sqldb.ListAvailablePhones"

	builder := pr.sq.Select(phoneColumns...).
		From("phone_numbers").
		Where(sq.Eq{"status": domain.LineAvailable}).
		Where("current_calls < max_concurrent_calls").
		Where(sq.GtOrEq{"priority": q.MinPriority})

	switch q.Scope {
	case domain.ScopeDepartment:
		builder = builder.Where(sq.Eq{"department_id": q.DepartmentID})
	case domain.ScopeGeneral:
		builder = builder.Where(sq.Or{
			sq.Eq{"department_id": nil},
			sq.Eq{"department_id": domain.GeneralDepartment},
		})
	case domain.ScopeAny:
	}

	query, args, err := builder.
		OrderBy("priority DESC", "current_calls ASC", "phone_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	phones := make([]domain.PhoneNumber, 0)
	if err := sqlx.SelectContext(ctx, ext, &phones, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select available phones: %w", op, err)
	}

	return phones, nil
}

func (pr *PhoneRepository) ListPhones(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.PhoneNumber, error) {
	const op = "internal.repository.sqldb.ListPhones"

	builder := pr.sq.Select(phoneColumns...).From("phone_numbers")
	if departmentID != "" {
		builder = builder.Where(sq.Eq{"department_id": departmentID})
	}

	query, args, err := builder.OrderBy("department_id", "phone_number").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	phones := make([]domain.PhoneNumber, 0)
	if err := sqlx.SelectContext(ctx, ext, &phones, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select phones: %w", op, err)
	}

	return phones, nil
}

func (pr *PhoneRepository) TryIncrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) (bool, error) {
	const op = "internal.repository.sqldb.TryIncrementCalls"

	query, args, err := pr.sq.Update("phone_numbers").
		Set("current_calls", sq.Expr("current_calls + 1")).
		Where(sq.Eq{"phone_number": number, "status": domain.LineAvailable}).
		Where("current_calls < max_concurrent_calls").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: failed to increment current calls: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return affected == 1, nil
}

func (pr *PhoneRepository) DecrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) error {
	const op = "internal.repository.sqldb.DecrementCalls"

	query, args, err := pr.sq.Update("phone_numbers").
		Set("current_calls", sq.Expr("CASE WHEN current_calls > 0 THEN current_calls - 1 ELSE 0 END")).
		Where(sq.Eq{"phone_number": number}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	return pr.execOne(ctx, ext, op, number, query, args)
}

func (pr *PhoneRepository) SetPhoneDepartment(ctx context.Context, ext sqlx.ExtContext, number string, departmentID string) error {
	const op = "internal.repository.sqldb.SetPhoneDepartment"

	query, args, err := pr.sq.Update("phone_numbers").
		Set("department_id", departmentID).
		Where(sq.Eq{"phone_number": number}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	return pr.execOne(ctx, ext, op, number, query, args)
}

func (pr *PhoneRepository) SetPhoneStatus(ctx context.Context, ext sqlx.ExtContext, number string, status domain.LineStatus) error {
	const op = "internal.repository.sqldb.SetPhoneStatus"

	query, args, err := pr.sq.Update("phone_numbers").
		Set("status", status).
		Where(sq.Eq{"phone_number": number}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	return pr.execOne(ctx, ext, op, number, query, args)
}

func (pr *PhoneRepository) execOne(ctx context.Context, ext sqlx.ExtContext, op, number, query string, args []any) error {
	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: phone number '%s'", apperrors.ErrNotFound, number)
	}

	return nil
}
