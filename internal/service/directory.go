package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
	"github.com/jmoiron/sqlx"
)

type AddUserParams struct {
	ID           string
	Name         string
	DepartmentID string
	PhoneNumber  string
	Role         domain.UserRole
}

type DirectoryService interface {
	AddUser(ctx context.Context, params AddUserParams) (*domain.User, error)
	FindAvailable(ctx context.Context, departmentID string, preferredUserID string) (*domain.User, error)
	SetStatus(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error)
	CreateDepartment(ctx context.Context, id string, name string, leadUserID string) (*domain.Department, error)
	DepartmentStatus(ctx context.Context, departmentID string) ([]domain.DepartmentWithMembers, error)
}

type DirectoryServiceImpl struct {
	BaseService
	dir    repository.DirectoryRepository
	phones repository.PhoneRepository
}

func NewDirectoryService(
	db Transactor,
	log *slog.Logger,
	dir repository.DirectoryRepository,
	phones repository.PhoneRepository,
) *DirectoryServiceImpl {
	return &DirectoryServiceImpl{
		BaseService: NewBaseService(db, log),
		dir:         dir,
		phones:      phones,
	}
}

func (s *DirectoryServiceImpl) AddUser(ctx context.Context, params AddUserParams) (*domain.User, error) {
	const op = "internal.service.directory.AddUser"
	log := s.log.With(slog.String("op", op), slog.String("user_id", params.ID))

	if params.ID == "" || params.Name == "" || params.DepartmentID == "" {
		return nil, fmt.Errorf("%w: user id, name and department are required", apperrors.ErrInvalidRequest)
	}

	role := params.Role
	switch role {
	case "":
		role = domain.RoleMember
	case domain.RoleLead, domain.RoleMember:
	default:
		return nil, fmt.Errorf("%w: unknown role '%s'", apperrors.ErrInvalidRequest, role)
	}

	user := &domain.User{
		ID:           params.ID,
		Name:         params.Name,
		DepartmentID: params.DepartmentID,
		Role:         role,
		Status:       domain.UserAvailable,
		CreatedAt:    s.now(),
	}

	if params.PhoneNumber != "" {
		user.PhoneNumber = strPtr(params.PhoneNumber)
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.dir.EnsureDepartment(ctx, tx, params.DepartmentID, departmentName(params.DepartmentID)); err != nil {
			return fmt.Errorf("%s: failed to ensure department: %w", op, err)
		}

		if err := s.dir.UpsertUser(ctx, tx, user); err != nil {
			return err
		}

		stored, err := s.dir.GetUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		user = stored

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("user added", slog.String("department_id", user.DepartmentID), slog.String("role", string(user.Role)))

	return user, nil
}

// FindAvailable returns the preferred user when it is available in the
// department, otherwise the first available user with leads before members.
func (s *DirectoryServiceImpl) FindAvailable(ctx context.Context, departmentID string, preferredUserID string) (*domain.User, error) {
	candidates, err := availableCandidates(ctx, s.dir, s.db, departmentID, preferredUserID)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: '%s'", apperrors.ErrNoAvailableUser, departmentID)
	}

	return &candidates[0], nil
}

func (s *DirectoryServiceImpl) SetStatus(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error) {
	const op = "internal.service.directory.SetStatus"

	switch status {
	case domain.UserAvailable, domain.UserBusy, domain.UserOffline:
	default:
		return nil, fmt.Errorf("%w: unknown user status '%s'", apperrors.ErrInvalidRequest, status)
	}

	user, err := s.dir.SetUserStatus(ctx, s.db, userID, status)
	if err != nil {
		return nil, err
	}

	s.log.Info("user status changed", slog.String("op", op), slog.String("user_id", userID), slog.String("status", string(status)))

	return user, nil
}

func (s *DirectoryServiceImpl) CreateDepartment(ctx context.Context, id string, name string, leadUserID string) (*domain.Department, error) {
	const op = "internal.service.directory.CreateDepartment"

	if id == "" {
		return nil, fmt.Errorf("%w: department id is required", apperrors.ErrInvalidRequest)
	}

	if name == "" {
		name = departmentName(id)
	}

	dept := &domain.Department{
		ID:        id,
		Name:      name,
		CreatedAt: s.now(),
	}

	if leadUserID != "" {
		dept.LeadUserID = strPtr(leadUserID)
	}

	if err := s.dir.UpsertDepartment(ctx, s.db, dept); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("department saved", slog.String("op", op), slog.String("department_id", id))

	return dept, nil
}

// DepartmentStatus groups users and lines by department. An unknown
// department yields apperrors.ErrNotFound.
func (s *DirectoryServiceImpl) DepartmentStatus(ctx context.Context, departmentID string) ([]domain.DepartmentWithMembers, error) {
	const op = "internal.service.directory.DepartmentStatus"

	depts, err := s.dir.ListDepartments(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.dir.ListUsers(ctx, s.db, departmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	phones, err := s.phones.ListPhones(ctx, s.db, departmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]domain.DepartmentWithMembers, 0, len(depts))
	index := make(map[string]int, len(depts))

	for _, d := range depts {
		if departmentID != "" && d.ID != departmentID {
			continue
		}

		index[d.ID] = len(result)
		result = append(result, domain.DepartmentWithMembers{
			Department:   d,
			Members:      make([]domain.User, 0),
			PhoneNumbers: make([]string, 0),
		})
	}

	if departmentID != "" && len(result) == 0 {
		return nil, fmt.Errorf("%w: department '%s'", apperrors.ErrNotFound, departmentID)
	}

	for _, u := range users {
		if i, ok := index[u.DepartmentID]; ok {
			result[i].Members = append(result[i].Members, u)
		}
	}

	for _, p := range phones {
		if p.DepartmentID == nil {
			continue
		}

		if i, ok := index[*p.DepartmentID]; ok {
			result[i].PhoneNumbers = append(result[i].PhoneNumbers, p.Number)
		}
	}

	return result, nil
}

// availableCandidates lists the users that may take an event for the
// department, preferred user first.
func availableCandidates(ctx context.Context, dir repository.DirectoryRepository, ext sqlx.ExtContext, departmentID, preferredUserID string) ([]domain.User, error) {
	const op = "internal.service.directory.availableCandidates"

	candidates := make([]domain.User, 0)

	if preferredUserID != "" {
		preferred, err := dir.GetUser(ctx, ext, preferredUserID)
		switch {
		case err == nil:
			if preferred.DepartmentID == departmentID && preferred.Status == domain.UserAvailable {
				candidates = append(candidates, *preferred)
			}
		case errors.Is(err, apperrors.ErrNotFound):
		default:
			return nil, fmt.Errorf("%s: failed to get preferred user: %w", op, err)
		}
	}

	users, err := dir.ListAvailableUsers(ctx, ext, departmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, u := range users {
		if u.ID == preferredUserID {
			continue
		}

		candidates = append(candidates, u)
	}

	return candidates, nil
}
