package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
	"github.com/google/uuid"
)

const defaultRulePriority = 10

type AddRuleParams struct {
	ConditionType    domain.ConditionType
	ConditionValue   string
	TargetDepartment string
	TargetUser       string
	// Priority defaults to 10 when nil. Lower values are evaluated first.
	Priority *int
}

// RuleMatch is the outcome of the first matching rule.
type RuleMatch struct {
	RuleID       string
	DepartmentID string
	UserID       *string
}

type RuleService interface {
	AddRule(ctx context.Context, params AddRuleParams) (*domain.RoutingRule, error)
	Resolve(ctx context.Context, from, to string, commType domain.CommunicationType) (*RuleMatch, error)
	ListRules(ctx context.Context, activeOnly bool) ([]domain.RoutingRule, error)
	SetActive(ctx context.Context, ruleID string, active bool) (*domain.RoutingRule, error)
}

type RuleServiceImpl struct {
	BaseService
	rules repository.RuleRepository
	loc   *time.Location
}

func NewRuleService(db Transactor, log *slog.Logger, rules repository.RuleRepository, loc *time.Location) *RuleServiceImpl {
	if loc == nil {
		loc = time.UTC
	}

	return &RuleServiceImpl{
		BaseService: NewBaseService(db, log),
		rules:       rules,
		loc:         loc,
	}
}

func (s *RuleServiceImpl) AddRule(ctx context.Context, params AddRuleParams) (*domain.RoutingRule, error) {
	const op = "internal.service.rule.AddRule"

	if params.ConditionValue == "" || params.TargetDepartment == "" {
		return nil, fmt.Errorf("%w: condition value and target department are required", apperrors.ErrInvalidRequest)
	}

	switch params.ConditionType {
	case domain.ConditionPhonePattern, domain.ConditionDepartment:
	case domain.ConditionTimeBased:
		if _, _, ok := parseWindow(params.ConditionValue); !ok {
			return nil, fmt.Errorf("%w: time window must look like HH:MM-HH:MM", apperrors.ErrInvalidRequest)
		}
	default:
		return nil, fmt.Errorf("%w: unknown condition type '%s'", apperrors.ErrInvalidRequest, params.ConditionType)
	}

	rule := &domain.RoutingRule{
		ID:               uuid.NewString(),
		Priority:         defaultRulePriority,
		ConditionType:    params.ConditionType,
		ConditionValue:   params.ConditionValue,
		TargetDepartment: params.TargetDepartment,
		IsActive:         true,
		CreatedAt:        s.now(),
	}

	if params.Priority != nil {
		rule.Priority = *params.Priority
	}

	if params.TargetUser != "" {
		rule.TargetUser = strPtr(params.TargetUser)
	}

	if err := s.rules.CreateRule(ctx, s.db, rule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("routing rule added",
		slog.String("op", op),
		slog.String("rule_id", rule.ID),
		slog.String("condition_type", string(rule.ConditionType)),
		slog.Int("priority", rule.Priority),
	)

	return rule, nil
}

// Resolve walks the active rules in ascending priority and returns the first
// match, or nil when no rule applies.
func (s *RuleServiceImpl) Resolve(ctx context.Context, from, to string, commType domain.CommunicationType) (*RuleMatch, error) {
	const op = "internal.service.rule.Resolve"

	rules, err := s.rules.ListRules(ctx, s.db, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()

	for _, rule := range rules {
		if !s.matches(rule, from, to, now) {
			continue
		}

		s.log.Debug("routing rule matched",
			slog.String("op", op),
			slog.String("rule_id", rule.ID),
			slog.String("type", string(commType)),
		)

		return &RuleMatch{
			RuleID:       rule.ID,
			DepartmentID: rule.TargetDepartment,
			UserID:       rule.TargetUser,
		}, nil
	}

	return nil, nil
}

func (s *RuleServiceImpl) ListRules(ctx context.Context, activeOnly bool) ([]domain.RoutingRule, error) {
	const op = "internal.service.rule.ListRules"

	rules, err := s.rules.ListRules(ctx, s.db, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rules, nil
}

func (s *RuleServiceImpl) SetActive(ctx context.Context, ruleID string, active bool) (*domain.RoutingRule, error) {
	const op = "internal.service.rule.SetActive"

	rule, err := s.rules.SetRuleActive(ctx, s.db, ruleID, active)
	if err != nil {
		return nil, err
	}

	s.log.Info("routing rule toggled", slog.String("op", op), slog.String("rule_id", ruleID), slog.Bool("active", active))

	return rule, nil
}

func (s *RuleServiceImpl) matches(rule domain.RoutingRule, from, to string, now time.Time) bool {
	switch rule.ConditionType {
	case domain.ConditionPhonePattern:
		return strings.Contains(from, rule.ConditionValue) || strings.Contains(to, rule.ConditionValue)
	case domain.ConditionDepartment:
		return strings.Contains(strings.ToLower(from), strings.ToLower(rule.ConditionValue))
	case domain.ConditionTimeBased:
		start, end, ok := parseWindow(rule.ConditionValue)
		if !ok {
			return false
		}

		local := now.In(s.loc)
		minute := local.Hour()*60 + local.Minute()

		if start <= end {
			return minute >= start && minute < end
		}

		return minute >= start || minute < end
	default:
		return false
	}
}

// parseWindow parses "HH:MM-HH:MM" into minutes since midnight.
func parseWindow(value string) (int, int, bool) {
	from, to, found := strings.Cut(strings.TrimSpace(value), "-")
	if !found {
		return 0, 0, false
	}

	start, ok := parseClock(from)
	if !ok {
		return 0, 0, false
	}

	end, ok := parseClock(to)
	if !ok || start == end {
		return 0, 0, false
	}

	return start, end, true
}

func parseClock(value string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found {
		return 0, false
	}

	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}

	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}

	return hour*60 + minute, true
}
