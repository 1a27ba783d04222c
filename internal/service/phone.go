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

const (
	defaultLinePriority = 5
	defaultMinPriority  = 1
)

type RegisterPhoneParams struct {
	Number             string
	DepartmentID       string
	UserID             string
	Type               domain.LineType
	// Priority defaults to 5 when nil. Lines below priority 1 are never selected.
	Priority           *int
	MaxConcurrentCalls int
}

type PhoneService interface {
	Register(ctx context.Context, params RegisterPhoneParams) (*domain.PhoneNumber, error)
	GetAvailable(ctx context.Context, departmentID string, minPriority int) (*domain.PhoneNumber, error)
	IncrementUsage(ctx context.Context, number string) error
	DecrementUsage(ctx context.Context, number string) error
	AssignToDepartment(ctx context.Context, number string, departmentID string) (*domain.PhoneNumber, error)
	SetStatus(ctx context.Context, number string, status domain.LineStatus) (*domain.PhoneNumber, error)
	Status(ctx context.Context, departmentID string) ([]domain.PhoneNumber, error)
}

type PhoneServiceImpl struct {
	BaseService
	phones repository.PhoneRepository
	dir    repository.DirectoryRepository
}

func NewPhoneService(
	db Transactor,
	log *slog.Logger,
	phones repository.PhoneRepository,
	dir repository.DirectoryRepository,
) *PhoneServiceImpl {
	return &PhoneServiceImpl{
		BaseService: NewBaseService(db, log),
		phones:      phones,
		dir:         dir,
	}
}

func (s *PhoneServiceImpl) Register(ctx context.Context, params RegisterPhoneParams) (*domain.PhoneNumber, error) {
	const op = "internal.service.phone.Register"
	log := s.log.With(slog.String("op", op), slog.String("number", params.Number))

	if params.Number == "" {
		return nil, fmt.Errorf("%w: phone number is required", apperrors.ErrInvalidRequest)
	}

	if (params.Priority != nil && *params.Priority < 0) || params.MaxConcurrentCalls < 0 {
		return nil, fmt.Errorf("%w: priority and max concurrent calls must not be negative", apperrors.ErrInvalidRequest)
	}

	phone := &domain.PhoneNumber{
		Number:             params.Number,
		Status:             domain.LineAvailable,
		Type:               params.Type,
		Priority:           defaultLinePriority,
		MaxConcurrentCalls: params.MaxConcurrentCalls,
		CreatedAt:          s.now(),
	}

	if phone.Type == "" {
		phone.Type = domain.LineBusiness
	}

	if params.Priority != nil {
		phone.Priority = *params.Priority
	}

	if phone.MaxConcurrentCalls == 0 {
		phone.MaxConcurrentCalls = 1
	}

	if params.DepartmentID != "" {
		phone.DepartmentID = strPtr(params.DepartmentID)
	}

	if params.UserID != "" {
		phone.UserID = strPtr(params.UserID)
	}

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if phone.DepartmentID != nil {
			if err := s.dir.EnsureDepartment(ctx, tx, params.DepartmentID, departmentName(params.DepartmentID)); err != nil {
				return fmt.Errorf("%s: failed to ensure department: %w", op, err)
			}
		}

		if phone.UserID != nil {
			if _, err := s.dir.GetUser(ctx, tx, params.UserID); err != nil {
				return err
			}
		}

		return s.phones.CreatePhone(ctx, tx, phone)
	})
	if err != nil {
		return nil, err
	}

	log.Info("phone number registered", slog.String("department_id", params.DepartmentID))

	return phone, nil
}

// GetAvailable returns the best line of the department, falling back to
// unassigned and general lines. It returns apperrors.ErrNoAvailableLine when
// nothing qualifies.
func (s *PhoneServiceImpl) GetAvailable(ctx context.Context, departmentID string, minPriority int) (*domain.PhoneNumber, error) {
	const op = "internal.service.phone.GetAvailable"

	candidates, err := lineCandidates(ctx, s.phones, s.db, departmentID, minPriority)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(candidates) == 0 {
		return nil, apperrors.ErrNoAvailableLine
	}

	return &candidates[0], nil
}

func (s *PhoneServiceImpl) IncrementUsage(ctx context.Context, number string) error {
	const op = "internal.service.phone.IncrementUsage"

	ok, err := s.phones.TryIncrementCalls(ctx, s.db, number)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if ok {
		return nil
	}

	if _, err := s.phones.GetPhone(ctx, s.db, number); err != nil {
		return err
	}

	return fmt.Errorf("%w: line '%s' is at capacity or not available", apperrors.ErrNoAvailableLine, number)
}

func (s *PhoneServiceImpl) DecrementUsage(ctx context.Context, number string) error {
	const op = "internal.service.phone.DecrementUsage"

	if err := s.phones.DecrementCalls(ctx, s.db, number); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *PhoneServiceImpl) AssignToDepartment(ctx context.Context, number string, departmentID string) (*domain.PhoneNumber, error) {
	const op = "internal.service.phone.AssignToDepartment"
	log := s.log.With(slog.String("op", op), slog.String("number", number), slog.String("department_id", departmentID))

	var phone *domain.PhoneNumber

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		if err := s.dir.EnsureDepartment(ctx, tx, departmentID, departmentName(departmentID)); err != nil {
			return fmt.Errorf("%s: failed to ensure department: %w", op, err)
		}

		if err := s.phones.SetPhoneDepartment(ctx, tx, number, departmentID); err != nil {
			return err
		}

		var err error

		phone, err = s.phones.GetPhone(ctx, tx, number)

		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("phone number assigned to department")

	return phone, nil
}

func (s *PhoneServiceImpl) SetStatus(ctx context.Context, number string, status domain.LineStatus) (*domain.PhoneNumber, error) {
	const op = "internal.service.phone.SetStatus"

	switch status {
	case domain.LineAvailable, domain.LineBusy, domain.LineMaintenance:
	default:
		return nil, fmt.Errorf("%w: unknown line status '%s'", apperrors.ErrInvalidRequest, status)
	}

	if err := s.phones.SetPhoneStatus(ctx, s.db, number, status); err != nil {
		return nil, err
	}

	phone, err := s.phones.GetPhone(ctx, s.db, number)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("line status changed", slog.String("op", op), slog.String("number", number), slog.String("status", string(status)))

	return phone, nil
}

func (s *PhoneServiceImpl) Status(ctx context.Context, departmentID string) ([]domain.PhoneNumber, error) {
	const op = "internal.service.phone.Status"

	phones, err := s.phones.ListPhones(ctx, s.db, departmentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return phones, nil
}

// lineCandidates lists the lines eligible for a department in preference
// order: the department's own lines, then unassigned and general lines.
// An empty department considers every line.
func lineCandidates(ctx context.Context, phones repository.PhoneRepository, ext sqlx.ExtContext, departmentID string, minPriority int) ([]domain.PhoneNumber, error) {
	if minPriority <= 0 {
		minPriority = defaultMinPriority
	}

	if departmentID == "" {
		return phones.ListAvailablePhones(ctx, ext, domain.LineQuery{Scope: domain.ScopeAny, MinPriority: minPriority})
	}

	own, err := phones.ListAvailablePhones(ctx, ext, domain.LineQuery{
		Scope:        domain.ScopeDepartment,
		DepartmentID: departmentID,
		MinPriority:  minPriority,
	})
	if err != nil {
		return nil, err
	}

	general, err := phones.ListAvailablePhones(ctx, ext, domain.LineQuery{Scope: domain.ScopeGeneral, MinPriority: minPriority})
	if err != nil {
		return nil, err
	}

	return appendUnique(own, general), nil
}

func appendUnique(dst []domain.PhoneNumber, src []domain.PhoneNumber) []domain.PhoneNumber {
	seen := make(map[string]struct{}, len(dst))
	for _, p := range dst {
		seen[p.Number] = struct{}{}
	}

	for _, p := range src {
		if _, ok := seen[p.Number]; ok {
			continue
		}

		seen[p.Number] = struct{}{}
		dst = append(dst, p)
	}

	return dst
}
