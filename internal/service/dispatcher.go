package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/repository"
	"github.com/YusovID/onetalk-router/pkg/logger/sl"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Outcome string

const (
	OutcomeRouted            Outcome = "routed"
	OutcomeRoutedWithoutUser Outcome = "routed_without_user"
	OutcomeRoutedWithoutLine Outcome = "routed_without_line"
	OutcomeFailed            Outcome = "failed"
)

const (
	ReasonNormal          = "normal_routing"
	ReasonCrossDepartment = "overflow_cross_department"
	ReasonVoicemail       = "overflow_voicemail"
)

type InboundEvent struct {
	From    string
	To      string
	Type    domain.CommunicationType
	Content string
}

// Result reports how far an inbound event got. Communication is nil only for
// OutcomeFailed.
type Result struct {
	Outcome       Outcome               `json:"outcome"`
	Communication *domain.Communication `json:"communication,omitempty"`
}

// EventPublisher receives committed routing events. Failures are logged by
// the dispatcher and never roll anything back.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type DispatcherConfig struct {
	VoicemailNumber string
	Location        *time.Location
}

type Dispatcher interface {
	ClassifyAndRoute(ctx context.Context, event InboundEvent) (*Result, error)
	EndCall(ctx context.Context, commID string, durationSeconds int) (*domain.Communication, error)
	GetCommunication(ctx context.Context, commID string) (*domain.Communication, error)
}

type DispatcherImpl struct {
	BaseService
	classifier *Classifier
	dir        repository.DirectoryRepository
	phones     repository.PhoneRepository
	comms      repository.CommunicationRepository
	stats      repository.StatsRepository
	publisher  EventPublisher
	voicemail  string
	loc        *time.Location
}

func NewDispatcher(
	db Transactor,
	log *slog.Logger,
	classifier *Classifier,
	dir repository.DirectoryRepository,
	phones repository.PhoneRepository,
	comms repository.CommunicationRepository,
	stats repository.StatsRepository,
	publisher EventPublisher,
	cfg DispatcherConfig,
) *DispatcherImpl {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &DispatcherImpl{
		BaseService: NewBaseService(db, log),
		classifier:  classifier,
		dir:         dir,
		phones:      phones,
		comms:       comms,
		stats:       stats,
		publisher:   publisher,
		voicemail:   cfg.VoicemailNumber,
		loc:         loc,
	}
}

// ClassifyAndRoute assigns a department, a user and a line to the event and
// logs it. A missing user or line degrades the outcome instead of failing;
// only store failures yield OutcomeFailed together with a PersistenceError.
func (d *DispatcherImpl) ClassifyAndRoute(ctx context.Context, event InboundEvent) (*Result, error) {
	const op = "internal.service.dispatcher.ClassifyAndRoute"
	log := d.log.With(slog.String("op", op), slog.String("from", event.From), slog.String("to", event.To))

	if event.From == "" || event.To == "" {
		return nil, fmt.Errorf("%w: from and to numbers are required", apperrors.ErrInvalidRequest)
	}

	switch event.Type {
	case domain.TypeCall, domain.TypeSMS, domain.TypeVoicemail:
	default:
		return nil, fmt.Errorf("%w: unknown communication type '%s'", apperrors.ErrInvalidRequest, event.Type)
	}

	class, err := d.classifier.Classify(ctx, event.From, event.To, event.Type, event.Content)
	if err != nil {
		log.Error("failed to classify communication", sl.Err(err))
		return &Result{Outcome: OutcomeFailed}, &apperrors.PersistenceError{Op: op, Err: err}
	}

	log = log.With(slog.String("department_id", class.DepartmentID), slog.String("method", class.Method))

	now := d.now()
	comm := &domain.Communication{
		ID:            uuid.NewString(),
		CreatedAt:     now,
		FromNumber:    event.From,
		ToNumber:      event.To,
		DepartmentID:  class.DepartmentID,
		Type:          event.Type,
		Content:       event.Content,
		RoutingMethod: class.Method,
	}

	isCall := event.Type == domain.TypeCall

	err = d.transaction(ctx, op, func(tx *sqlx.Tx) error {
		users, err := availableCandidates(ctx, d.dir, tx, class.DepartmentID, class.UserHint)
		if err != nil {
			return err
		}

		line, reason, err := d.assignLine(ctx, tx, class.DepartmentID, isCall)
		if err != nil {
			return err
		}

		comm.RoutedNumber = strPtr(line)
		comm.RoutingReason = reason

		toSink := reason == ReasonVoicemail

		user, err := d.assignUser(ctx, tx, users, isCall && !toSink)
		if err != nil {
			return err
		}

		if user != nil {
			comm.UserID = strPtr(user.ID)
		}

		switch {
		case isCall && toSink:
			comm.Status = domain.CommMissed
		case isCall:
			comm.Status = domain.CommActive
		default:
			comm.Status = domain.CommCompleted
		}

		if err := d.comms.CreateCommunication(ctx, tx, comm); err != nil {
			return err
		}

		routing := &domain.CallRouting{
			ID:              uuid.NewString(),
			CommunicationID: comm.ID,
			FromNumber:      comm.FromNumber,
			ToNumber:        comm.ToNumber,
			RoutedToNumber:  comm.RoutedNumber,
			RoutedToUser:    comm.UserID,
			Department:      comm.DepartmentID,
			RoutingReason:   reason,
			CreatedAt:       now,
			Status:          comm.Status,
		}
		if err := d.comms.CreateCallRouting(ctx, tx, routing); err != nil {
			return err
		}

		var delta domain.StatsDelta
		switch event.Type {
		case domain.TypeCall:
			delta.Calls = 1
		case domain.TypeSMS:
			delta.SMS = 1
		}

		if delta != (domain.StatsDelta{}) {
			if err := d.stats.IncrementStats(ctx, tx, line, domain.StatsDate(now.In(d.loc)), delta); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Error("failed to route communication", sl.Err(err))
		communicationsRoutedTotal.WithLabelValues(string(event.Type), string(OutcomeFailed), class.Method).Inc()

		return &Result{Outcome: OutcomeFailed}, &apperrors.PersistenceError{Op: op, Err: err}
	}

	result := &Result{Outcome: OutcomeRouted, Communication: comm}
	switch {
	case comm.UserID == nil:
		result.Outcome = OutcomeRoutedWithoutUser
	case comm.RoutingReason == ReasonVoicemail:
		result.Outcome = OutcomeRoutedWithoutLine
	}

	communicationsRoutedTotal.WithLabelValues(string(event.Type), string(result.Outcome), class.Method).Inc()
	lineSelectionsTotal.WithLabelValues(comm.RoutingReason).Inc()

	log.Info("communication routed",
		slog.String("communication_id", comm.ID),
		slog.String("outcome", string(result.Outcome)),
		slog.String("line", deref(comm.RoutedNumber)),
		slog.String("reason", comm.RoutingReason),
		slog.String("user_id", deref(comm.UserID)),
	)

	d.publish(ctx, domain.Event{
		Type:          domain.EventCommunicationRouted,
		Outcome:       string(result.Outcome),
		Communication: *comm,
	})

	return result, nil
}

// assignLine picks the line for the event. Calls take a capacity slot with a
// compare-and-increment and move on to the next candidate when it fails.
// When every line is exhausted the voicemail sink is returned.
func (d *DispatcherImpl) assignLine(ctx context.Context, tx *sqlx.Tx, departmentID string, isCall bool) (string, string, error) {
	const op = "internal.service.dispatcher.assignLine"

	tried := make(map[string]struct{})

	take := func(lines []domain.PhoneNumber) (string, bool, error) {
		for _, line := range lines {
			if _, ok := tried[line.Number]; ok {
				continue
			}

			tried[line.Number] = struct{}{}

			if !isCall {
				return line.Number, true, nil
			}

			ok, err := d.phones.TryIncrementCalls(ctx, tx, line.Number)
			if err != nil {
				return "", false, fmt.Errorf("%s: %w", op, err)
			}

			if ok {
				return line.Number, true, nil
			}
		}

		return "", false, nil
	}

	own, err := lineCandidates(ctx, d.phones, tx, departmentID, defaultMinPriority)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if number, ok, err := take(own); err != nil || ok {
		return number, ReasonNormal, err
	}

	overflow, err := d.phones.ListAvailablePhones(ctx, tx, domain.LineQuery{Scope: domain.ScopeAny, MinPriority: defaultMinPriority})
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if number, ok, err := take(overflow); err != nil || ok {
		return number, ReasonCrossDepartment, err
	}

	return d.voicemail, ReasonVoicemail, nil
}

// assignUser returns the first candidate. With claim set the candidate is
// moved from available to busy, and a candidate taken concurrently is skipped.
func (d *DispatcherImpl) assignUser(ctx context.Context, tx *sqlx.Tx, candidates []domain.User, claim bool) (*domain.User, error) {
	const op = "internal.service.dispatcher.assignUser"

	for i := range candidates {
		user := &candidates[i]
		if !claim {
			return user, nil
		}

		ok, err := d.dir.CompareAndSetUserStatus(ctx, tx, user.ID, domain.UserAvailable, domain.UserBusy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if ok {
			user.Status = domain.UserBusy
			return user, nil
		}
	}

	return nil, nil
}

// EndCall completes an active call. Calling it again for the same call
// returns the stored record and changes nothing.
func (d *DispatcherImpl) EndCall(ctx context.Context, commID string, durationSeconds int) (*domain.Communication, error) {
	const op = "internal.service.dispatcher.EndCall"
	log := d.log.With(slog.String("op", op), slog.String("communication_id", commID))

	if durationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", apperrors.ErrInvalidRequest)
	}

	var (
		comm    *domain.Communication
		changed bool
	)

	endedAt := d.now()

	err := d.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		comm, err = d.comms.GetCommunicationWithLock(ctx, tx, commID)
		if err != nil {
			return err
		}

		if comm.Type != domain.TypeCall {
			return fmt.Errorf("%w: communication '%s' is a %s", apperrors.ErrNotACall, commID, comm.Type)
		}

		if comm.Status != domain.CommActive {
			return nil
		}

		changed, err = d.comms.CompleteCall(ctx, tx, commID, durationSeconds, endedAt)
		if err != nil || !changed {
			return err
		}

		if line := deref(comm.RoutedNumber); line != "" {
			if line != d.voicemail {
				if err := d.phones.DecrementCalls(ctx, tx, line); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
					return err
				}
			}

			date := domain.StatsDate(comm.CreatedAt.In(d.loc))
			if err := d.stats.IncrementStats(ctx, tx, line, date, domain.StatsDelta{Duration: durationSeconds}); err != nil {
				return err
			}
		}

		if comm.UserID != nil {
			if _, err := d.dir.CompareAndSetUserStatus(ctx, tx, *comm.UserID, domain.UserBusy, domain.UserAvailable); err != nil {
				return err
			}
		}

		comm, err = d.comms.GetCommunication(ctx, tx, commID)

		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrNotACall) {
			return nil, err
		}

		return nil, &apperrors.PersistenceError{Op: op, Err: err}
	}

	if !changed {
		log.Info("call already ended", slog.String("status", string(comm.Status)))
		return comm, nil
	}

	callsEndedTotal.Inc()
	callDurationSeconds.Observe(float64(durationSeconds))

	log.Info("call ended", slog.Int("duration", durationSeconds))

	d.publish(ctx, domain.Event{Type: domain.EventCallEnded, Communication: *comm})

	return comm, nil
}

func (d *DispatcherImpl) GetCommunication(ctx context.Context, commID string) (*domain.Communication, error) {
	const op = "internal.service.dispatcher.GetCommunication"

	comm, err := d.comms.GetCommunication(ctx, d.db, commID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return comm, nil
}

func (d *DispatcherImpl) publish(ctx context.Context, event domain.Event) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.Warn("failed to publish event",
			slog.String("type", string(event.Type)),
			slog.String("communication_id", event.Communication.ID),
			sl.Err(err),
		)
	}
}
