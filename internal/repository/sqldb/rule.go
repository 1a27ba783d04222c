package sqldb

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
)

var ruleColumns = []string{
	"id", "priority", "condition_type", "condition_value",
	"target_department", "target_user", "is_active", "created_at",
}

type RuleRepository struct {
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewRuleRepository(store *Store, log *slog.Logger) *RuleRepository {
	return &RuleRepository{
		log: log,
		sq:  store.builder(),
	}
}

func (rr *RuleRepository) CreateRule(ctx context.Context, ext sqlx.ExtContext, rule *domain.RoutingRule) error {
	const op = "internal.repository.sqldb.CreateRule"

	query, args, err := rr.sq.Insert("routing_rules").
		Columns(ruleColumns...).
		Values(
			rule.ID, rule.Priority, rule.ConditionType, rule.ConditionValue,
			rule.TargetDepartment, rule.TargetUser, rule.IsActive, rule.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if _, err := ext.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rule with id '%s'", apperrors.ErrAlreadyExists, rule.ID)
		}

		return fmt.Errorf("%s: failed to insert rule: %w", op, err)
	}

	rr.log.Debug("rule inserted", slog.String("op", op), slog.String("rule_id", rule.ID))

	return nil
}

func (rr *RuleRepository) ListRules(ctx context.Context, ext sqlx.ExtContext, activeOnly bool) ([]domain.RoutingRule, error) {
	const op = "internal.repository.sqldb.ListRules"

	builder := rr.sq.Select(ruleColumns...).From("routing_rules")
	if activeOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}

	query, args, err := builder.OrderBy("priority ASC", "created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	rules := make([]domain.RoutingRule, 0)
	if err := sqlx.SelectContext(ctx, ext, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select rules: %w", op, err)
	}

	return rules, nil
}

func (rr *RuleRepository) SetRuleActive(ctx context.Context, ext sqlx.ExtContext, ruleID string, active bool) (*domain.RoutingRule, error) {
	const op = "internal.repository.sqldb.SetRuleActive"

	query, args, err := rr.sq.Update("routing_rules").
		Set("is_active", active).
		Where(sq.Eq{"id": ruleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := ext.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to update rule: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	if affected == 0 {
		return nil, fmt.Errorf("%w: rule with id '%s'", apperrors.ErrNotFound, ruleID)
	}

	query, args, err = rr.sq.Select(ruleColumns...).
		From("routing_rules").
		Where(sq.Eq{"id": ruleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var rule domain.RoutingRule
	if err := sqlx.GetContext(ctx, ext, &rule, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to get rule: %w", op, err)
	}

	return &rule, nil
}
