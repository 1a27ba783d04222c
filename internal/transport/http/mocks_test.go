package http

import (
	"context"

	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/stretchr/testify/mock"
)

type PhoneServiceMock struct {
	mock.Mock
}

func (m *PhoneServiceMock) Register(ctx context.Context, params service.RegisterPhoneParams) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *PhoneServiceMock) GetAvailable(ctx context.Context, departmentID string, minPriority int) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, departmentID, minPriority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *PhoneServiceMock) IncrementUsage(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}

func (m *PhoneServiceMock) DecrementUsage(ctx context.Context, number string) error {
	return m.Called(ctx, number).Error(0)
}

func (m *PhoneServiceMock) AssignToDepartment(ctx context.Context, number string, departmentID string) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, number, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *PhoneServiceMock) SetStatus(ctx context.Context, number string, status domain.LineStatus) (*domain.PhoneNumber, error) {
	args := m.Called(ctx, number, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.PhoneNumber), args.Error(1)
}

func (m *PhoneServiceMock) Status(ctx context.Context, departmentID string) ([]domain.PhoneNumber, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.PhoneNumber), args.Error(1)
}

type DirectoryServiceMock struct {
	mock.Mock
}

func (m *DirectoryServiceMock) AddUser(ctx context.Context, params service.AddUserParams) (*domain.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *DirectoryServiceMock) FindAvailable(ctx context.Context, departmentID string, preferredUserID string) (*domain.User, error) {
	args := m.Called(ctx, departmentID, preferredUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *DirectoryServiceMock) SetStatus(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *DirectoryServiceMock) CreateDepartment(ctx context.Context, id string, name string, leadUserID string) (*domain.Department, error) {
	args := m.Called(ctx, id, name, leadUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Department), args.Error(1)
}

func (m *DirectoryServiceMock) DepartmentStatus(ctx context.Context, departmentID string) ([]domain.DepartmentWithMembers, error) {
	args := m.Called(ctx, departmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.DepartmentWithMembers), args.Error(1)
}

type RuleServiceMock struct {
	mock.Mock
}

func (m *RuleServiceMock) AddRule(ctx context.Context, params service.AddRuleParams) (*domain.RoutingRule, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.RoutingRule), args.Error(1)
}

func (m *RuleServiceMock) Resolve(ctx context.Context, from, to string, commType domain.CommunicationType) (*service.RuleMatch, error) {
	args := m.Called(ctx, from, to, commType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.RuleMatch), args.Error(1)
}

func (m *RuleServiceMock) ListRules(ctx context.Context, activeOnly bool) ([]domain.RoutingRule, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.RoutingRule), args.Error(1)
}

func (m *RuleServiceMock) SetActive(ctx context.Context, ruleID string, active bool) (*domain.RoutingRule, error) {
	args := m.Called(ctx, ruleID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.RoutingRule), args.Error(1)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) ClassifyAndRoute(ctx context.Context, event service.InboundEvent) (*service.Result, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *DispatcherMock) EndCall(ctx context.Context, commID string, durationSeconds int) (*domain.Communication, error) {
	args := m.Called(ctx, commID, durationSeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Communication), args.Error(1)
}

func (m *DispatcherMock) GetCommunication(ctx context.Context, commID string) (*domain.Communication, error) {
	args := m.Called(ctx, commID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Communication), args.Error(1)
}

type StatsServiceMock struct {
	mock.Mock
}

func (m *StatsServiceMock) DailyStats(ctx context.Context, date string) ([]service.LineStats, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]service.LineStats), args.Error(1)
}
