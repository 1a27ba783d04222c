package http

type registerPhoneRequest struct {
	PhoneNumber        string `json:"phone_number" validate:"required,phone_number"`
	DepartmentID       string `json:"department_id" validate:"omitempty,custom_id,max=100"`
	UserID             string `json:"user_id" validate:"omitempty,custom_id,max=100"`
	Type               string `json:"type" validate:"omitempty,oneof=business emergency personal"`
	Priority           *int   `json:"priority" validate:"omitempty,gte=0"`
	MaxConcurrentCalls int    `json:"max_concurrent_calls" validate:"gte=0"`
}

type assignPhoneRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required,phone_number"`
	DepartmentID string `json:"department_id" validate:"required,custom_id,max=100"`
}

type setPhoneStatusRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone_number"`
	Status      string `json:"status" validate:"required,oneof=available busy maintenance"`
}

type addDepartmentRequest struct {
	DepartmentID string `json:"department_id" validate:"required,custom_id,max=100"`
	Name         string `json:"name" validate:"max=255"`
	LeadUserID   string `json:"lead_user_id" validate:"omitempty,custom_id,max=100"`
}

type addUserRequest struct {
	UserID       string `json:"user_id" validate:"required,custom_id,min=1,max=100"`
	Name         string `json:"name" validate:"required,min=1,max=255"`
	DepartmentID string `json:"department_id" validate:"required,custom_id,max=100"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,phone_number"`
	Role         string `json:"role" validate:"omitempty,oneof=lead member"`
}

type setUserStatusRequest struct {
	UserID string `json:"user_id" validate:"required,custom_id,min=1,max=100"`
	Status string `json:"status" validate:"required,oneof=available busy offline"`
}

type addRuleRequest struct {
	ConditionType    string `json:"condition_type" validate:"required,oneof=phone_pattern time_based department"`
	ConditionValue   string `json:"condition_value" validate:"required,max=255"`
	TargetDepartment string `json:"target_department" validate:"required,custom_id,max=100"`
	TargetUser       string `json:"target_user" validate:"omitempty,custom_id,max=100"`
	Priority         *int   `json:"priority" validate:"omitempty,gte=0"`
}

type setRuleActiveRequest struct {
	RuleID   string `json:"rule_id" validate:"required,custom_id,max=100"`
	IsActive bool   `json:"is_active"`
}

type inboundRequest struct {
	From    string `json:"from" validate:"required,phone_number"`
	To      string `json:"to" validate:"required,phone_number"`
	Type    string `json:"type" validate:"required,oneof=call sms voicemail"`
	Content string `json:"content" validate:"max=10000"`
}

type endCallRequest struct {
	CommunicationID string `json:"communication_id" validate:"required,custom_id,max=100"`
	Duration        int    `json:"duration" validate:"gte=0"`
}
