package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testVoicemail = "+1-555-VOICE-MAIL"

var dispatchNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

type dispatcherMocks struct {
	transactor *TransactorMock
	rules      *RuleResolverMock
	dir        *DirectoryRepositoryMock
	phones     *PhoneRepositoryMock
	comms      *CommunicationRepositoryMock
	stats      *StatsRepositoryMock
	publisher  *EventPublisherMock
}

func newDispatcherMocks() *dispatcherMocks {
	return &dispatcherMocks{
		transactor: new(TransactorMock),
		rules:      new(RuleResolverMock),
		dir:        new(DirectoryRepositoryMock),
		phones:     new(PhoneRepositoryMock),
		comms:      new(CommunicationRepositoryMock),
		stats:      new(StatsRepositoryMock),
		publisher:  new(EventPublisherMock),
	}
}

func (m *dispatcherMocks) dispatcher() *DispatcherImpl {
	classifier := NewClassifier(nil, m.rules, m.comms, m.phones, []KeywordRoute{
		{Department: "credit_analysis", Words: []string{"credit", "loan"}},
		{Department: "sales", Words: []string{"buy", "deal"}},
	}, "customer_service")

	d := NewDispatcher(m.transactor, discardLogger, classifier, m.dir, m.phones, m.comms, m.stats, m.publisher, DispatcherConfig{
		VoicemailNumber: testVoicemail,
	})
	d.now = fixedClock(dispatchNow)

	return d
}

func (m *dispatcherMocks) assertExpectations(t *testing.T) {
	t.Helper()

	m.transactor.AssertExpectations(t)
	m.rules.AssertExpectations(t)
	m.dir.AssertExpectations(t)
	m.phones.AssertExpectations(t)
	m.comms.AssertExpectations(t)
	m.stats.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

// expectKeywordClassification sets up a classification that falls through
// rules and history, so the department comes from the content.
func (m *dispatcherMocks) expectKeywordClassification(ctx context.Context, from, to string, commType domain.CommunicationType) {
	m.rules.On("Resolve", ctx, from, to, commType).Return(nil, nil).Once()
	m.comms.On("FindHistory", ctx, mock.Anything, from).Return(nil, nil).Once()
}

func (m *dispatcherMocks) expectTx(t *testing.T, commit bool) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	_, tx, smock := newMockDBAndTx(t)
	if commit {
		smock.ExpectCommit()
	} else {
		smock.ExpectRollback()
	}

	m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(tx, nil).Once()

	return tx, smock
}

func deptQuery(dept string) domain.LineQuery {
	return domain.LineQuery{Scope: domain.ScopeDepartment, DepartmentID: dept, MinPriority: 1}
}

var (
	generalQuery = domain.LineQuery{Scope: domain.ScopeGeneral, MinPriority: 1}
	anyQuery     = domain.LineQuery{Scope: domain.ScopeAny, MinPriority: 1}
)

func TestDispatcherImpl_ClassifyAndRoute(t *testing.T) {
	ctx := context.Background()
	lead := domain.User{ID: "c1", Name: "Carol", DepartmentID: "credit_analysis", Role: domain.RoleLead, Status: domain.UserAvailable}
	member := domain.User{ID: "c2", Name: "Dave", DepartmentID: "credit_analysis", Role: domain.RoleMember, Status: domain.UserAvailable}
	creditLine := domain.PhoneNumber{Number: "+1-555-CREDIT-01", DepartmentID: strPtr("credit_analysis"), Status: domain.LineAvailable, Priority: 10, MaxConcurrentCalls: 1}
	salesLine := domain.PhoneNumber{Number: "+1-555-SALES-01", DepartmentID: strPtr("sales"), Status: domain.LineAvailable, Priority: 5, MaxConcurrentCalls: 2}

	const (
		from = "+1-555-123-4567"
		to   = "+1-555-MAIN-00"
	)

	testCases := []struct {
		name            string
		event           InboundEvent
		setupMocks      func(m *dispatcherMocks, tx *sqlx.Tx)
		expectedOutcome Outcome
		expectedUser    *string
		expectedLine    string
		expectedReason  string
		expectedStatus  domain.CommunicationStatus
	}{
		{
			name:  "Call is routed to the department line and claims the lead",
			event: InboundEvent{From: from, To: to, Type: domain.TypeCall, Content: "I need a loan"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "credit_analysis").Return([]domain.User{lead, member}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, deptQuery("credit_analysis")).Return([]domain.PhoneNumber{creditLine}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, generalQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.phones.On("TryIncrementCalls", ctx, tx, creditLine.Number).Return(true, nil).Once()
				m.dir.On("CompareAndSetUserStatus", ctx, tx, "c1", domain.UserAvailable, domain.UserBusy).Return(true, nil).Once()
				m.stats.On("IncrementStats", ctx, tx, creditLine.Number, "2025-03-10", domain.StatsDelta{Calls: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRouted,
			expectedUser:    strPtr("c1"),
			expectedLine:    creditLine.Number,
			expectedReason:  ReasonNormal,
			expectedStatus:  domain.CommActive,
		},
		{
			name:  "User claimed concurrently is skipped",
			event: InboundEvent{From: from, To: to, Type: domain.TypeCall, Content: "credit check"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "credit_analysis").Return([]domain.User{lead, member}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, deptQuery("credit_analysis")).Return([]domain.PhoneNumber{creditLine}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, generalQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.phones.On("TryIncrementCalls", ctx, tx, creditLine.Number).Return(true, nil).Once()
				m.dir.On("CompareAndSetUserStatus", ctx, tx, "c1", domain.UserAvailable, domain.UserBusy).Return(false, nil).Once()
				m.dir.On("CompareAndSetUserStatus", ctx, tx, "c2", domain.UserAvailable, domain.UserBusy).Return(true, nil).Once()
				m.stats.On("IncrementStats", ctx, tx, creditLine.Number, "2025-03-10", domain.StatsDelta{Calls: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRouted,
			expectedUser:    strPtr("c2"),
			expectedLine:    creditLine.Number,
			expectedReason:  ReasonNormal,
			expectedStatus:  domain.CommActive,
		},
		{
			name:  "Full department line overflows to another department",
			event: InboundEvent{From: from, To: to, Type: domain.TypeCall, Content: "loan please"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "credit_analysis").Return([]domain.User{lead}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, deptQuery("credit_analysis")).Return([]domain.PhoneNumber{creditLine}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, generalQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.phones.On("TryIncrementCalls", ctx, tx, creditLine.Number).Return(false, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, anyQuery).Return([]domain.PhoneNumber{creditLine, salesLine}, nil).Once()
				m.phones.On("TryIncrementCalls", ctx, tx, salesLine.Number).Return(true, nil).Once()
				m.dir.On("CompareAndSetUserStatus", ctx, tx, "c1", domain.UserAvailable, domain.UserBusy).Return(true, nil).Once()
				m.stats.On("IncrementStats", ctx, tx, salesLine.Number, "2025-03-10", domain.StatsDelta{Calls: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRouted,
			expectedUser:    strPtr("c1"),
			expectedLine:    salesLine.Number,
			expectedReason:  ReasonCrossDepartment,
			expectedStatus:  domain.CommActive,
		},
		{
			name:  "No line left sends the call to voicemail without claiming the user",
			event: InboundEvent{From: from, To: to, Type: domain.TypeCall, Content: "loan"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "credit_analysis").Return([]domain.User{lead}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, deptQuery("credit_analysis")).Return([]domain.PhoneNumber{}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, generalQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, anyQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.stats.On("IncrementStats", ctx, tx, testVoicemail, "2025-03-10", domain.StatsDelta{Calls: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRoutedWithoutLine,
			expectedUser:    strPtr("c1"),
			expectedLine:    testVoicemail,
			expectedReason:  ReasonVoicemail,
			expectedStatus:  domain.CommMissed,
		},
		{
			name:  "Missing user takes precedence over missing line",
			event: InboundEvent{From: from, To: to, Type: domain.TypeCall, Content: "loan"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "credit_analysis").Return([]domain.User{}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, mock.Anything).Return([]domain.PhoneNumber{}, nil).Times(3)
				m.stats.On("IncrementStats", ctx, tx, testVoicemail, "2025-03-10", domain.StatsDelta{Calls: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRoutedWithoutUser,
			expectedLine:    testVoicemail,
			expectedReason:  ReasonVoicemail,
			expectedStatus:  domain.CommMissed,
		},
		{
			name:  "SMS takes no capacity and keeps the user available",
			event: InboundEvent{From: from, To: to, Type: domain.TypeSMS, Content: "want to buy"},
			setupMocks: func(m *dispatcherMocks, tx *sqlx.Tx) {
				m.dir.On("ListAvailableUsers", ctx, tx, "sales").Return([]domain.User{{ID: "s1", DepartmentID: "sales", Status: domain.UserAvailable}}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, deptQuery("sales")).Return([]domain.PhoneNumber{salesLine}, nil).Once()
				m.phones.On("ListAvailablePhones", ctx, tx, generalQuery).Return([]domain.PhoneNumber{}, nil).Once()
				m.stats.On("IncrementStats", ctx, tx, salesLine.Number, "2025-03-10", domain.StatsDelta{SMS: 1}).Return(nil).Once()
			},
			expectedOutcome: OutcomeRouted,
			expectedUser:    strPtr("s1"),
			expectedLine:    salesLine.Number,
			expectedReason:  ReasonNormal,
			expectedStatus:  domain.CommCompleted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newDispatcherMocks()
			tx, smock := m.expectTx(t, true)

			m.expectKeywordClassification(ctx, tc.event.From, tc.event.To, tc.event.Type)
			tc.setupMocks(m, tx)
			m.comms.On("CreateCommunication", ctx, tx, mock.AnythingOfType("*domain.Communication")).Return(nil).Once()
			m.comms.On("CreateCallRouting", ctx, tx, mock.MatchedBy(func(r *domain.CallRouting) bool {
				return r.RoutingReason == tc.expectedReason
			})).Return(nil).Once()
			m.publisher.On("Publish", ctx, mock.MatchedBy(func(e domain.Event) bool {
				return e.Type == domain.EventCommunicationRouted && e.Outcome == string(tc.expectedOutcome)
			})).Return(nil).Once()

			result, err := m.dispatcher().ClassifyAndRoute(ctx, tc.event)
			require.NoError(t, err)
			require.NotNil(t, result.Communication)

			assert.Equal(t, tc.expectedOutcome, result.Outcome)
			assert.Equal(t, tc.expectedUser, result.Communication.UserID)
			assert.Equal(t, tc.expectedLine, *result.Communication.RoutedNumber)
			assert.Equal(t, tc.expectedReason, result.Communication.RoutingReason)
			assert.Equal(t, tc.expectedStatus, result.Communication.Status)
			assert.Equal(t, MethodKeywords, result.Communication.RoutingMethod)

			assert.NoError(t, smock.ExpectationsWereMet())
			m.assertExpectations(t)
		})
	}
}

func TestDispatcherImpl_ClassifyAndRoute_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalid communication type", func(t *testing.T) {
		m := newDispatcherMocks()

		result, err := m.dispatcher().ClassifyAndRoute(ctx, InboundEvent{From: "a", To: "b", Type: "fax"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		assert.Nil(t, result)
		m.assertExpectations(t)
	})

	t.Run("Persistence failure is reported as failed", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, false)

		m.expectKeywordClassification(ctx, "a", "b", domain.TypeSMS)
		m.phones.On("GetPhone", ctx, mock.Anything, "b").Return(nil, apperrors.ErrNotFound).Once()
		m.dir.On("ListAvailableUsers", ctx, tx, "customer_service").Return([]domain.User{}, nil).Once()
		m.phones.On("ListAvailablePhones", ctx, tx, mock.Anything).Return([]domain.PhoneNumber{}, nil).Times(3)
		m.comms.On("CreateCommunication", ctx, tx, mock.Anything).Return(errors.New("disk full")).Once()

		result, err := m.dispatcher().ClassifyAndRoute(ctx, InboundEvent{From: "a", To: "b", Type: domain.TypeSMS})
		require.Error(t, err)

		var persistenceErr *apperrors.PersistenceError
		assert.ErrorAs(t, err, &persistenceErr)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Nil(t, result.Communication)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("Classification failure is reported as failed", func(t *testing.T) {
		m := newDispatcherMocks()
		m.rules.On("Resolve", ctx, "a", "b", domain.TypeCall).Return(nil, errors.New("db down")).Once()

		result, err := m.dispatcher().ClassifyAndRoute(ctx, InboundEvent{From: "a", To: "b", Type: domain.TypeCall})
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		m.assertExpectations(t)
	})

	t.Run("Publisher failure does not fail routing", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, true)

		m.expectKeywordClassification(ctx, "a", "b", domain.TypeSMS)
		m.phones.On("GetPhone", ctx, mock.Anything, "b").Return(nil, apperrors.ErrNotFound).Once()
		m.dir.On("ListAvailableUsers", ctx, tx, "customer_service").Return([]domain.User{{ID: "u1"}}, nil).Once()
		m.phones.On("ListAvailablePhones", ctx, tx, mock.Anything).Return([]domain.PhoneNumber{}, nil).Times(3)
		m.comms.On("CreateCommunication", ctx, tx, mock.Anything).Return(nil).Once()
		m.comms.On("CreateCallRouting", ctx, tx, mock.Anything).Return(nil).Once()
		m.stats.On("IncrementStats", ctx, tx, testVoicemail, "2025-03-10", domain.StatsDelta{SMS: 1}).Return(nil).Once()
		m.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("webhook down")).Once()

		result, err := m.dispatcher().ClassifyAndRoute(ctx, InboundEvent{From: "a", To: "b", Type: domain.TypeSMS})
		require.NoError(t, err)
		assert.Equal(t, OutcomeRoutedWithoutLine, result.Outcome)
		assert.Equal(t, MethodDefault, result.Communication.RoutingMethod)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})
}

func TestDispatcherImpl_EndCall(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 9, 23, 50, 0, 0, time.UTC)

	activeCall := func() *domain.Communication {
		return &domain.Communication{
			ID:           "comm-1",
			CreatedAt:    created,
			Type:         domain.TypeCall,
			Status:       domain.CommActive,
			UserID:       strPtr("c1"),
			RoutedNumber: strPtr("+1-555-CREDIT-01"),
		}
	}

	t.Run("Completes the call and releases line and user", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, true)

		completed := activeCall()
		completed.Status = domain.CommCompleted

		m.comms.On("GetCommunicationWithLock", ctx, tx, "comm-1").Return(activeCall(), nil).Once()
		m.comms.On("CompleteCall", ctx, tx, "comm-1", 120, dispatchNow).Return(true, nil).Once()
		m.phones.On("DecrementCalls", ctx, tx, "+1-555-CREDIT-01").Return(nil).Once()
		m.stats.On("IncrementStats", ctx, tx, "+1-555-CREDIT-01", "2025-03-09", domain.StatsDelta{Duration: 120}).Return(nil).Once()
		m.dir.On("CompareAndSetUserStatus", ctx, tx, "c1", domain.UserBusy, domain.UserAvailable).Return(true, nil).Once()
		m.comms.On("GetCommunication", ctx, tx, "comm-1").Return(completed, nil).Once()
		m.publisher.On("Publish", ctx, mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventCallEnded && e.Communication.ID == "comm-1"
		})).Return(nil).Once()

		comm, err := m.dispatcher().EndCall(ctx, "comm-1", 120)
		require.NoError(t, err)
		assert.Equal(t, domain.CommCompleted, comm.Status)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("Second end call changes nothing", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, true)

		done := activeCall()
		done.Status = domain.CommCompleted

		m.comms.On("GetCommunicationWithLock", ctx, tx, "comm-1").Return(done, nil).Once()

		comm, err := m.dispatcher().EndCall(ctx, "comm-1", 120)
		require.NoError(t, err)
		assert.Equal(t, done, comm)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("Unregistered line is not decremented", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, true)

		m.comms.On("GetCommunicationWithLock", ctx, tx, "comm-1").Return(activeCall(), nil).Once()
		m.comms.On("CompleteCall", ctx, tx, "comm-1", 30, dispatchNow).Return(true, nil).Once()
		m.phones.On("DecrementCalls", ctx, tx, "+1-555-CREDIT-01").Return(apperrors.ErrNotFound).Once()
		m.stats.On("IncrementStats", ctx, tx, "+1-555-CREDIT-01", "2025-03-09", domain.StatsDelta{Duration: 30}).Return(nil).Once()
		m.dir.On("CompareAndSetUserStatus", ctx, tx, "c1", domain.UserBusy, domain.UserAvailable).Return(false, nil).Once()
		m.comms.On("GetCommunication", ctx, tx, "comm-1").Return(activeCall(), nil).Once()
		m.publisher.On("Publish", ctx, mock.Anything).Return(nil).Once()

		_, err := m.dispatcher().EndCall(ctx, "comm-1", 30)
		require.NoError(t, err)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("SMS cannot be ended", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, false)

		sms := activeCall()
		sms.Type = domain.TypeSMS

		m.comms.On("GetCommunicationWithLock", ctx, tx, "comm-1").Return(sms, nil).Once()

		_, err := m.dispatcher().EndCall(ctx, "comm-1", 10)
		assert.ErrorIs(t, err, apperrors.ErrNotACall)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("Unknown communication", func(t *testing.T) {
		m := newDispatcherMocks()
		tx, smock := m.expectTx(t, false)

		m.comms.On("GetCommunicationWithLock", ctx, tx, "nope").Return(nil, apperrors.ErrNotFound).Once()

		_, err := m.dispatcher().EndCall(ctx, "nope", 10)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		assert.NoError(t, smock.ExpectationsWereMet())
		m.assertExpectations(t)
	})

	t.Run("Negative duration is rejected", func(t *testing.T) {
		m := newDispatcherMocks()

		_, err := m.dispatcher().EndCall(ctx, "comm-1", -1)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		m.assertExpectations(t)
	})

	t.Run("Begin failure is a persistence error", func(t *testing.T) {
		m := newDispatcherMocks()
		m.transactor.On("BeginTxx", mock.Anything, (*sql.TxOptions)(nil)).Return(nil, errors.New("cannot begin")).Once()

		_, err := m.dispatcher().EndCall(ctx, "comm-1", 10)

		var persistenceErr *apperrors.PersistenceError
		assert.ErrorAs(t, err, &persistenceErr)
		m.assertExpectations(t)
	})
}
