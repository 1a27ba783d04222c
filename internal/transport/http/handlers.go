package http

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/YusovID/onetalk-router/internal/apperrors"
	"github.com/YusovID/onetalk-router/internal/domain"
	"github.com/YusovID/onetalk-router/internal/service"
	"github.com/oapi-codegen/runtime"
)

func (s *Server) PostPhonesRegister(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostPhonesRegister"

	var req registerPhoneRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	phone, err := s.phones.Register(r.Context(), service.RegisterPhoneParams{
		Number:             req.PhoneNumber,
		DepartmentID:       req.DepartmentID,
		UserID:             req.UserID,
		Type:               domain.LineType(req.Type),
		Priority:           req.Priority,
		MaxConcurrentCalls: req.MaxConcurrentCalls,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.PhoneNumber{"phone": phone})
}

func (s *Server) GetPhonesAvailable(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetPhonesAvailable"

	query := r.URL.Query()

	minPriority := 1
	if err := queryParam(query, "min_priority", &minPriority); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if minPriority < 0 {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: min_priority must not be negative", apperrors.ErrInvalidRequest))
		return
	}

	phone, err := s.phones.GetAvailable(r.Context(), query.Get("department_id"), minPriority)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.PhoneNumber{"phone": phone})
}

func (s *Server) PostPhonesAssign(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostPhonesAssign"

	var req assignPhoneRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	phone, err := s.phones.AssignToDepartment(r.Context(), req.PhoneNumber, req.DepartmentID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.PhoneNumber{"phone": phone})
}

func (s *Server) PostPhonesSetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostPhonesSetStatus"

	var req setPhoneStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	phone, err := s.phones.SetStatus(r.Context(), req.PhoneNumber, domain.LineStatus(req.Status))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.PhoneNumber{"phone": phone})
}

func (s *Server) GetPhonesStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetPhonesStatus"

	phones, err := s.phones.Status(r.Context(), r.URL.Query().Get("department_id"))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.PhoneNumber{"phones": phones})
}

func (s *Server) PostDepartmentsAdd(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostDepartmentsAdd"

	var req addDepartmentRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	dept, err := s.directory.CreateDepartment(r.Context(), req.DepartmentID, req.Name, req.LeadUserID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.Department{"department": dept})
}

func (s *Server) GetDepartmentsStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetDepartmentsStatus"

	depts, err := s.directory.DepartmentStatus(r.Context(), r.URL.Query().Get("department_id"))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.DepartmentWithMembers{"departments": depts})
}

func (s *Server) PostUsersAdd(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostUsersAdd"

	var req addUserRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	user, err := s.directory.AddUser(r.Context(), service.AddUserParams{
		ID:           req.UserID,
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		PhoneNumber:  req.PhoneNumber,
		Role:         domain.UserRole(req.Role),
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.User{"user": user})
}

func (s *Server) PostUsersSetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostUsersSetStatus"

	var req setUserStatusRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	user, err := s.directory.SetStatus(r.Context(), req.UserID, domain.UserStatus(req.Status))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.User{"user": user})
}

func (s *Server) GetUsersAvailable(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetUsersAvailable"

	query := r.URL.Query()

	departmentID := query.Get("department_id")
	if departmentID == "" {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: department_id is required", apperrors.ErrInvalidRequest))
		return
	}

	user, err := s.directory.FindAvailable(r.Context(), departmentID, query.Get("preferred_user_id"))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.User{"user": user})
}

func (s *Server) PostRulesAdd(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostRulesAdd"

	var req addRuleRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	rule, err := s.rules.AddRule(r.Context(), service.AddRuleParams{
		ConditionType:    domain.ConditionType(req.ConditionType),
		ConditionValue:   req.ConditionValue,
		TargetDepartment: req.TargetDepartment,
		TargetUser:       req.TargetUser,
		Priority:         req.Priority,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, map[string]*domain.RoutingRule{"rule": rule})
}

func (s *Server) GetRulesList(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetRulesList"

	activeOnly := false
	if err := queryParam(r.URL.Query(), "active_only", &activeOnly); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	rules, err := s.rules.ListRules(r.Context(), activeOnly)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string][]domain.RoutingRule{"rules": rules})
}

func (s *Server) PostRulesSetActive(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostRulesSetActive"

	var req setRuleActiveRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	rule, err := s.rules.SetActive(r.Context(), req.RuleID, req.IsActive)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.RoutingRule{"rule": rule})
}

func (s *Server) PostCommunicationsInbound(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostCommunicationsInbound"

	var req inboundRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	result, err := s.dispatcher.ClassifyAndRoute(r.Context(), service.InboundEvent{
		From:    req.From,
		To:      req.To,
		Type:    domain.CommunicationType(req.Type),
		Content: req.Content,
	})
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, result)
}

func (s *Server) PostCommunicationsEndCall(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.PostCommunicationsEndCall"

	var req endCallRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	comm, err := s.dispatcher.EndCall(r.Context(), req.CommunicationID, req.Duration)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Communication{"communication": comm})
}

func (s *Server) GetCommunicationsGet(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetCommunicationsGet"

	commID := r.URL.Query().Get("communication_id")
	if commID == "" {
		s.handleServiceError(w, r, op, fmt.Errorf("%w: communication_id is required", apperrors.ErrInvalidRequest))
		return
	}

	comm, err := s.dispatcher.GetCommunication(r.Context(), commID)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]*domain.Communication{"communication": comm})
}

func (s *Server) GetStatsDaily(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.GetStatsDaily"

	date := r.URL.Query().Get("date")

	lines, err := s.stats.DailyStats(r.Context(), date)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"lines": lines,
	})
}

// queryParam binds an optional form-style query parameter into dest.
// dest keeps its value when the parameter is absent.
func queryParam(query url.Values, name string, dest interface{}) error {
	if !query.Has(name) {
		return nil
	}

	if err := runtime.BindQueryParameter("form", true, true, name, query, dest); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}
