// package repository defines the interfaces for the data persistence layer.
// Every method takes an sqlx.ExtContext so the service layer decides whether it
// runs inside a transaction (*sqlx.Tx) or directly on the pool (*sqlx.DB).
package repository

import (
	"context"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
)

// PhoneRepository defines the contract for the phone line registry.
type PhoneRepository interface {
	// CreatePhone inserts a new line.
	// It returns *apperrors.DuplicateNumberError if the number is already registered.
	CreatePhone(ctx context.Context, ext sqlx.ExtContext, phone *domain.PhoneNumber) error

	// GetPhone returns apperrors.ErrNotFound for unknown numbers.
	GetPhone(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.PhoneNumber, error)

	// ListAvailablePhones returns lines in status available with spare capacity,
	// ordered by priority desc, current load asc, number asc.
	ListAvailablePhones(ctx context.Context, ext sqlx.ExtContext, q domain.LineQuery) ([]domain.PhoneNumber, error)

	// ListPhones returns every line, optionally restricted to one department.
	ListPhones(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.PhoneNumber, error)

	// TryIncrementCalls atomically takes one call slot on the line.
	// It reports false when the line is full or not available.
	TryIncrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) (bool, error)

	// DecrementCalls releases one call slot, clamping at zero.
	// It returns apperrors.ErrNotFound for unknown numbers.
	DecrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) error

	// SetPhoneDepartment returns apperrors.ErrNotFound for unknown numbers.
	SetPhoneDepartment(ctx context.Context, ext sqlx.ExtContext, number string, departmentID string) error

	// SetPhoneStatus returns apperrors.ErrNotFound for unknown numbers.
	SetPhoneStatus(ctx context.Context, ext sqlx.ExtContext, number string, status domain.LineStatus) error
}

// DirectoryRepository defines the contract for users and departments.
type DirectoryRepository interface {
	// EnsureDepartment creates the department when it does not exist yet.
	EnsureDepartment(ctx context.Context, ext sqlx.ExtContext, id string, name string) error

	// UpsertDepartment creates or renames a department.
	UpsertDepartment(ctx context.Context, ext sqlx.ExtContext, dept *domain.Department) error

	ListDepartments(ctx context.Context, ext sqlx.ExtContext) ([]domain.Department, error)

	// UpsertUser creates the user or replaces its profile fields. Status is kept
	// for existing users.
	UpsertUser(ctx context.Context, ext sqlx.ExtContext, user *domain.User) error

	// GetUser returns apperrors.ErrNotFound for unknown ids.
	GetUser(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error)

	// ListUsers returns users ordered lead first then by name, optionally for one department.
	ListUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error)

	// ListAvailableUsers returns available users of a department, lead first then by name.
	ListAvailableUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error)

	// SetUserStatus returns apperrors.ErrNotFound for unknown ids.
	SetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, status domain.UserStatus) (*domain.User, error)

	// CompareAndSetUserStatus moves the user from one status to another and
	// reports whether the transition happened.
	CompareAndSetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, from, to domain.UserStatus) (bool, error)
}

// RuleRepository defines the contract for routing rules.
type RuleRepository interface {
	CreateRule(ctx context.Context, ext sqlx.ExtContext, rule *domain.RoutingRule) error

	// ListRules returns rules in evaluation order: priority asc, then creation order.
	ListRules(ctx context.Context, ext sqlx.ExtContext, activeOnly bool) ([]domain.RoutingRule, error)

	// SetRuleActive returns apperrors.ErrNotFound for unknown ids.
	SetRuleActive(ctx context.Context, ext sqlx.ExtContext, ruleID string, active bool) (*domain.RoutingRule, error)
}

// CommunicationRepository defines the contract for the append-only communication log.
type CommunicationRepository interface {
	CreateCommunication(ctx context.Context, ext sqlx.ExtContext, comm *domain.Communication) error

	CreateCallRouting(ctx context.Context, ext sqlx.ExtContext, routing *domain.CallRouting) error

	// GetCommunication returns apperrors.ErrNotFound for unknown ids.
	GetCommunication(ctx context.Context, ext sqlx.ExtContext, commID string) (*domain.Communication, error)

	// GetCommunicationWithLock is GetCommunication plus a row lock where the
	// store supports it. It must run inside a transaction.
	GetCommunicationWithLock(ctx context.Context, tx *sqlx.Tx, commID string) (*domain.Communication, error)

	// CompleteCall finishes an active call and reports whether the row changed.
	CompleteCall(ctx context.Context, ext sqlx.ExtContext, commID string, duration int, endedAt time.Time) (bool, error)

	// FindHistory returns the most frequent (department, user) pair seen for
	// the number, ties broken by most recent. It returns nil when there is none.
	FindHistory(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.HistoryMatch, error)
}

// StatsRepository defines the contract for per-line daily counters.
type StatsRepository interface {
	// IncrementStats upserts the (number, date) row and adds delta to it.
	IncrementStats(ctx context.Context, ext sqlx.ExtContext, number string, date string, delta domain.StatsDelta) error

	// DailyStats returns the counters of every registered line plus any
	// unregistered number that carried traffic on date.
	DailyStats(ctx context.Context, ext sqlx.ExtContext, date string) ([]domain.PhoneStats, error)
}
