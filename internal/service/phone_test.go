package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPhoneServiceImpl_Register(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name          string
		params        RegisterPhoneParams
		setupMocks    func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock)
		expectedPhone *domain.PhoneNumber
		expectedErr   error
	}{
		{
			name:   "Defaults are applied and department is created",
			params: RegisterPhoneParams{Number: "+1-555-SALES-01", DepartmentID: "sales"},
			setupMocks: func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {
				_, tx, smock := newMockDBAndTx(t)
				smock.ExpectCommit()

				transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()
				dir.On("EnsureDepartment", ctx, tx, "sales", "Sales").Return(nil).Once()
				phones.On("CreatePhone", ctx, tx, mock.MatchedBy(func(p *domain.PhoneNumber) bool {
					return p.Type == domain.LineBusiness && p.Priority == 5 && p.MaxConcurrentCalls == 1 && p.CurrentCalls == 0
				})).Return(nil).Once()
			},
			expectedPhone: &domain.PhoneNumber{
				Number:             "+1-555-SALES-01",
				DepartmentID:       strPtr("sales"),
				Status:             domain.LineAvailable,
				Type:               domain.LineBusiness,
				Priority:           5,
				MaxConcurrentCalls: 1,
			},
		},
		{
			name:   "Duplicate number",
			params: RegisterPhoneParams{Number: "+1-555-SALES-01", Priority: intPtr(10), MaxConcurrentCalls: 3, Type: domain.LineEmergency},
			setupMocks: func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {
				_, tx, smock := newMockDBAndTx(t)
				smock.ExpectRollback()

				transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()
				phones.On("CreatePhone", ctx, tx, mock.Anything).
					Return(&apperrors.DuplicateNumberError{Number: "+1-555-SALES-01"}).Once()
			},
			expectedErr: apperrors.ErrDuplicateNumber,
		},
		{
			name:   "Unknown owner",
			params: RegisterPhoneParams{Number: "+1-555-DIRECT-01", UserID: "ghost"},
			setupMocks: func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {
				_, tx, smock := newMockDBAndTx(t)
				smock.ExpectRollback()

				transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()
				dir.On("GetUser", ctx, tx, "ghost").Return(nil, apperrors.ErrNotFound).Once()
			},
			expectedErr: apperrors.ErrNotFound,
		},
		{
			name:   "Explicit zero priority is kept",
			params: RegisterPhoneParams{Number: "+1-555-LOW-01", Priority: intPtr(0)},
			setupMocks: func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {
				_, tx, smock := newMockDBAndTx(t)
				smock.ExpectCommit()

				transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()
				phones.On("CreatePhone", ctx, tx, mock.MatchedBy(func(p *domain.PhoneNumber) bool {
					return p.Priority == 0
				})).Return(nil).Once()
			},
			expectedPhone: &domain.PhoneNumber{
				Number:             "+1-555-LOW-01",
				Status:             domain.LineAvailable,
				Type:               domain.LineBusiness,
				Priority:           0,
				MaxConcurrentCalls: 1,
			},
		},
		{
			name:        "Negative priority",
			params:      RegisterPhoneParams{Number: "x", Priority: intPtr(-1)},
			setupMocks:  func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {},
			expectedErr: apperrors.ErrInvalidRequest,
		},
		{
			name:        "Empty number",
			params:      RegisterPhoneParams{},
			setupMocks:  func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {},
			expectedErr: apperrors.ErrInvalidRequest,
		},
		{
			name:        "Negative capacity",
			params:      RegisterPhoneParams{Number: "x", MaxConcurrentCalls: -1},
			setupMocks:  func(transactor *TransactorMock, phones *PhoneRepositoryMock, dir *DirectoryRepositoryMock) {},
			expectedErr: apperrors.ErrInvalidRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			transactor := new(TransactorMock)
			phones := new(PhoneRepositoryMock)
			dir := new(DirectoryRepositoryMock)
			tc.setupMocks(transactor, phones, dir)

			service := NewPhoneService(transactor, discardLogger, phones, dir)
			service.now = fixedClock(dispatchNow)

			phone, err := service.Register(ctx, tc.params)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, phone)
			} else {
				require.NoError(t, err)
				tc.expectedPhone.CreatedAt = dispatchNow
				assert.Equal(t, tc.expectedPhone, phone)
			}

			transactor.AssertExpectations(t)
			phones.AssertExpectations(t)
			dir.AssertExpectations(t)
		})
	}
}

func TestPhoneServiceImpl_GetAvailable(t *testing.T) {
	ctx := context.Background()
	own := domain.PhoneNumber{Number: "+1-555-SALES-01", DepartmentID: strPtr("sales")}
	general := domain.PhoneNumber{Number: "+1-555-MAIN-01"}

	t.Run("Department line preferred over general line", func(t *testing.T) {
		phones := new(PhoneRepositoryMock)
		phones.On("ListAvailablePhones", ctx, mock.Anything, deptQuery("sales")).Return([]domain.PhoneNumber{own}, nil).Once()
		phones.On("ListAvailablePhones", ctx, mock.Anything, generalQuery).Return([]domain.PhoneNumber{general}, nil).Once()

		phone, err := NewPhoneService(nil, discardLogger, phones, nil).GetAvailable(ctx, "sales", 0)
		require.NoError(t, err)
		assert.Equal(t, own.Number, phone.Number)
		phones.AssertExpectations(t)
	})

	t.Run("General line used when department has none", func(t *testing.T) {
		phones := new(PhoneRepositoryMock)
		phones.On("ListAvailablePhones", ctx, mock.Anything, deptQuery("support")).Return([]domain.PhoneNumber{}, nil).Once()
		phones.On("ListAvailablePhones", ctx, mock.Anything, generalQuery).Return([]domain.PhoneNumber{general}, nil).Once()

		phone, err := NewPhoneService(nil, discardLogger, phones, nil).GetAvailable(ctx, "support", 1)
		require.NoError(t, err)
		assert.Equal(t, general.Number, phone.Number)
	})

	t.Run("Nothing available is a sentinel", func(t *testing.T) {
		phones := new(PhoneRepositoryMock)
		phones.On("ListAvailablePhones", ctx, mock.Anything, mock.Anything).Return([]domain.PhoneNumber{}, nil).Twice()

		phone, err := NewPhoneService(nil, discardLogger, phones, nil).GetAvailable(ctx, "empty", 1)
		assert.ErrorIs(t, err, apperrors.ErrNoAvailableLine)
		assert.Nil(t, phone)
	})

	t.Run("Store failure is not a sentinel", func(t *testing.T) {
		phones := new(PhoneRepositoryMock)
		phones.On("ListAvailablePhones", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

		_, err := NewPhoneService(nil, discardLogger, phones, nil).GetAvailable(ctx, "sales", 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrNoAvailableLine)
	})
}

func TestPhoneServiceImpl_IncrementUsage(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		setupMock   func(phones *PhoneRepositoryMock)
		expectedErr error
	}{
		{
			name: "Slot taken",
			setupMock: func(phones *PhoneRepositoryMock) {
				phones.On("TryIncrementCalls", ctx, mock.Anything, "n1").Return(true, nil).Once()
			},
		},
		{
			name: "Line at capacity",
			setupMock: func(phones *PhoneRepositoryMock) {
				phones.On("TryIncrementCalls", ctx, mock.Anything, "n1").Return(false, nil).Once()
				phones.On("GetPhone", ctx, mock.Anything, "n1").Return(&domain.PhoneNumber{Number: "n1"}, nil).Once()
			},
			expectedErr: apperrors.ErrNoAvailableLine,
		},
		{
			name: "Unknown line",
			setupMock: func(phones *PhoneRepositoryMock) {
				phones.On("TryIncrementCalls", ctx, mock.Anything, "n1").Return(false, nil).Once()
				phones.On("GetPhone", ctx, mock.Anything, "n1").Return(nil, apperrors.ErrNotFound).Once()
			},
			expectedErr: apperrors.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			phones := new(PhoneRepositoryMock)
			tc.setupMock(phones)

			err := NewPhoneService(nil, discardLogger, phones, nil).IncrementUsage(ctx, "n1")
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			phones.AssertExpectations(t)
		})
	}
}

func TestPhoneServiceImpl_SetStatus_RejectsUnknownStatus(t *testing.T) {
	_, err := NewPhoneService(nil, discardLogger, new(PhoneRepositoryMock), nil).SetStatus(context.Background(), "n1", "broken")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestDepartmentName(t *testing.T) {
	assert.Equal(t, "Credit Analysis", departmentName("credit_analysis"))
	assert.Equal(t, "Sales", departmentName("sales"))
	assert.Equal(t, "Vehicle Transport", departmentName("VEHICLE_transport"))
	assert.Equal(t, "Über Team", departmentName("über_team"))
	assert.Equal(t, "Éclair Ops", departmentName("ÉCLAIR-ops"))
}
