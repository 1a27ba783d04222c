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

var userColumns = []string{"id", "name", "department_id", "role", "phone_number", "status", "created_at"}

// leadFirst orders leads before members regardless of the role spelling.
const leadFirst = "CASE role WHEN 'lead' THEN 0 ELSE 1 END"

type DirectoryRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewDirectoryRepository(store *Store, log *slog.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		log: log,
		sq:  store.builder(),
	}
}

func (dr *DirectoryRepository) EnsureDepartment(ctx context.Context, ext sqlx.ExtContext, id string, name string) error {
	const op = "internal.repository.sqldb.EnsureDepartment"

	query, args, err := dr.sq.Insert("departments").
		Columns("id", "name").
		Values(id, name).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to insert department: %w", op, err)
	}

	return nil
}

func (dr *DirectoryRepository) UpsertDepartment(ctx context.Context, ext sqlx.ExtContext, dept *domain.Department) error {
	const op = "internal.repository.sqldb.UpsertDepartment"

	query, args, err := dr.sq.Insert("departments").
		Columns("id", "name", "lead_user_id", "created_at").
		Values(dept.ID, dept.Name, dept.LeadUserID, dept.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, lead_user_id = EXCLUDED.lead_user_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to upsert department: %w", op, err)
	}

	dr.log.Debug("department upserted", slog.String("op", op), slog.String("department_id", dept.ID))

	return nil
}

func (dr *DirectoryRepository) ListDepartments(ctx context.Context, ext sqlx.ExtContext) ([]domain.Department, error) {
	const op = "internal.repository.sqldb.ListDepartments"

	query, args, err := dr.sq.Select("id", "name", "lead_user_id", "created_at").
		From("departments").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	depts := make([]domain.Department, 0)
	if err := sqlx.SelectContext(ctx, ext, &depts, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select departments: %w", op, err)
	}

	return depts, nil
}

func (dr *DirectoryRepository) UpsertUser(ctx context.Context, ext sqlx.ExtContext, user *domain.User) error {
	const op = "internal.repository.sqldb.UpsertUser"

	query, args, err := dr.sq.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Name, user.DepartmentID, user.Role, user.PhoneNumber, user.Status, user.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            department_id = EXCLUDED.department_id,
            role = EXCLUDED.role,
            phone_number = EXCLUDED.phone_number`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to upsert user: %w", op, err)
	}

	dr.log.Debug("user upserted", slog.String("op", op), slog.String("user_id", user.ID))

	return nil
}

func (dr *DirectoryRepository) GetUser(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error) {
	const op = "internal.repository.sqldb.GetUser"

	query, args, err := dr.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var user domain.User
	if err := sqlx.GetContext(ctx, ext, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with id '%s'", apperrors.ErrNotFound, userID)
		}

		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	return &user, nil
}

func (dr *DirectoryRepository) ListUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error) {
	const op = "internal.repository.sqldb.ListUsers"

	builder := dr.sq.Select(userColumns...).From("users")
	if departmentID != "" {
		builder = builder.Where(sq.Eq{"department_id": departmentID})
	}

	query, args, err := builder.OrderBy("department_id", leadFirst, "name", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	users := make([]domain.User, 0)
	if err := sqlx.SelectContext(ctx, ext, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select users: %w", op, err)
	}

	return users, nil
}

func (dr *DirectoryRepository) ListAvailableUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error) {
	const op = "internal.repository.sqldb.ListAvailableUsers"

	query, args, err := dr.sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"department_id": departmentID, "status": domain.UserAvailable}).
		OrderBy(leadFirst, "name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	users := make([]domain.User, 0)
	if err := sqlx.SelectContext(ctx, ext, &users, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select available users: %w", op, err)
	}

	return users, nil
}

func (dr *DirectoryRepository) SetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, status domain.UserStatus) (*domain.User, error) {
	const op = "internal.repository.sqldb.SetUserStatus"

	query, args, err := dr.sq.Update("users").
		Set("status", status).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute update user status: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return nil, fmt.Errorf("%w: user with id '%s'", apperrors.ErrNotFound, userID)
	}

	return dr.GetUser(ctx, ext, userID)
}

func (dr *DirectoryRepository) CompareAndSetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, from, to domain.UserStatus) (bool, error) {
	const op = "internal.repository.sqldb.CompareAndSetUserStatus"

	query, args, err := dr.sq.Update("users").
		Set("status", to).
		Where(sq.Eq{"id": userID, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: failed to execute update user status: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return affected == 1, nil
}
