package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
	sqlx.ExtContext
}

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	var tx *sqlx.Tx

	args := m.Called(ctx, opts)
	if args.Get(0) != nil {
		tx = args.Get(0).(*sqlx.Tx)
	}

	return tx, args.Error(1)
}

type PhoneRepositoryMock struct {
	mock.Mock
}

var _ repository.PhoneRepository = (*PhoneRepositoryMock)(nil)

func (m *PhoneRepositoryMock) CreatePhone(ctx context.Context, ext sqlx.ExtContext, phone *domain.PhoneNumber) error {
	args := m.Called(ctx, ext, phone)
	return args.Error(0)
}

func (m *PhoneRepositoryMock) GetPhone(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, ext, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *PhoneRepositoryMock) ListAvailablePhones(ctx context.Context, ext sqlx.ExtContext, q domain.LineQuery) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx, ext, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

func (m *PhoneRepositoryMock) ListPhones(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx, ext, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

func (m *PhoneRepositoryMock) TryIncrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) (bool, error) {
	args := m.Called(ctx, ext, number)
	return args.Bool(0), args.Error(1)
}

func (m *PhoneRepositoryMock) DecrementCalls(ctx context.Context, ext sqlx.ExtContext, number string) error {
	args := m.Called(ctx, ext, number)
	return args.Error(0)
}

func (m *PhoneRepositoryMock) SetPhoneDepartment(ctx context.Context, ext sqlx.ExtContext, number string, departmentID string) error {
	args := m.Called(ctx, ext, number, departmentID)
	return args.Error(0)
}

func (m *PhoneRepositoryMock) SetPhoneStatus(ctx context.Context, ext sqlx.ExtContext, number string, status domain.LineStatus) error {
	args := m.Called(ctx, ext, number, status)
	return args.Error(0)
}

type DirectoryRepositoryMock struct {
	mock.Mock
}

var _ repository.DirectoryRepository = (*DirectoryRepositoryMock)(nil)

func (m *DirectoryRepositoryMock) EnsureDepartment(ctx context.Context, ext sqlx.ExtContext, id string, name string) error {
	args := m.Called(ctx, ext, id, name)
	return args.Error(0)
}

func (m *DirectoryRepositoryMock) UpsertDepartment(ctx context.Context, ext sqlx.ExtContext, dept *domain.Department) error {
	args := m.Called(ctx, ext, dept)
	return args.Error(0)
}

func (m *DirectoryRepositoryMock) ListDepartments(ctx context.Context, ext sqlx.ExtContext) ([]domain.Department, error) {
	args := m.Called(ctx, ext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Department), args.Error(1)
}

func (m *DirectoryRepositoryMock) UpsertUser(ctx context.Context, ext sqlx.ExtContext, user *domain.User) error {
	args := m.Called(ctx, ext, user)
	return args.Error(0)
}

func (m *DirectoryRepositoryMock) GetUser(ctx context.Context, ext sqlx.ExtContext, userID string) (*domain.User, error) {
	args := m.Called(ctx, ext, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *DirectoryRepositoryMock) ListUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error) {
	args := m.Called(ctx, ext, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *DirectoryRepositoryMock) ListAvailableUsers(ctx context.Context, ext sqlx.ExtContext, departmentID string) ([]domain.User, error) {
	args := m.Called(ctx, ext, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *DirectoryRepositoryMock) SetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, status domain.UserStatus) (*domain.User, error) {
	args := m.Called(ctx, ext, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *DirectoryRepositoryMock) CompareAndSetUserStatus(ctx context.Context, ext sqlx.ExtContext, userID string, from, to domain.UserStatus) (bool, error) {
	args := m.Called(ctx, ext, userID, from, to)
	return args.Bool(0), args.Error(1)
}

type RuleRepositoryMock struct {
	mock.Mock
}

var _ repository.RuleRepository = (*RuleRepositoryMock)(nil)

func (m *RuleRepositoryMock) CreateRule(ctx context.Context, ext sqlx.ExtContext, rule *domain.RoutingRule) error {
	args := m.Called(ctx, ext, rule)
	return args.Error(0)
}

func (m *RuleRepositoryMock) ListRules(ctx context.Context, ext sqlx.ExtContext, activeOnly bool) ([]domain.RoutingRule, error) {
	args := m.Called(ctx, ext, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.RoutingRule), args.Error(1)
}

func (m *RuleRepositoryMock) SetRuleActive(ctx context.Context, ext sqlx.ExtContext, ruleID string, active bool) (*domain.RoutingRule, error) {
	args := m.Called(ctx, ext, ruleID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.RoutingRule), args.Error(1)
}

type CommunicationRepositoryMock struct {
	mock.Mock
}

var _ repository.CommunicationRepository = (*CommunicationRepositoryMock)(nil)

func (m *CommunicationRepositoryMock) CreateCommunication(ctx context.Context, ext sqlx.ExtContext, comm *domain.Communication) error {
	args := m.Called(ctx, ext, comm)
	return args.Error(0)
}

func (m *CommunicationRepositoryMock) CreateCallRouting(ctx context.Context, ext sqlx.ExtContext, routing *domain.CallRouting) error {
	args := m.Called(ctx, ext, routing)
	return args.Error(0)
}

func (m *CommunicationRepositoryMock) GetCommunication(ctx context.Context, ext sqlx.ExtContext, commID string) (*domain.Communication, error) {
	args := m.Called(ctx, ext, commID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Communication), args.Error(1)
}

func (m *CommunicationRepositoryMock) GetCommunicationWithLock(ctx context.Context, tx *sqlx.Tx, commID string) (*domain.Communication, error) {
	args := m.Called(ctx, tx, commID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Communication), args.Error(1)
}

func (m *CommunicationRepositoryMock) CompleteCall(ctx context.Context, ext sqlx.ExtContext, commID string, duration int, endedAt time.Time) (bool, error) {
	args := m.Called(ctx, ext, commID, duration, endedAt)
	return args.Bool(0), args.Error(1)
}

func (m *CommunicationRepositoryMock) FindHistory(ctx context.Context, ext sqlx.ExtContext, number string) (*domain.HistoryMatch, error) {
	args := m.Called(ctx, ext, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.HistoryMatch), args.Error(1)
}

type StatsRepositoryMock struct {
	mock.Mock
}

var _ repository.StatsRepository = (*StatsRepositoryMock)(nil)

func (m *StatsRepositoryMock) IncrementStats(ctx context.Context, ext sqlx.ExtContext, number string, date string, delta domain.StatsDelta) error {
	args := m.Called(ctx, ext, number, date, delta)
	return args.Error(0)
}

func (m *StatsRepositoryMock) DailyStats(ctx context.Context, ext sqlx.ExtContext, date string) ([]domain.PhoneStats, error) {
	args := m.Called(ctx, ext, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PhoneStats), args.Error(1)
}

type RuleResolverMock struct {
	mock.Mock
}

func (m *RuleResolverMock) Resolve(ctx context.Context, from, to string, commType domain.CommunicationType) (*RuleMatch, error) {
	args := m.Called(ctx, from, to, commType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*RuleMatch), args.Error(1)
}

type EventPublisherMock struct {
	mock.Mock
}

func (m *EventPublisherMock) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
