package domain

import (
	"time"
)

type UserRole string

const (
	RoleLead   UserRole = "lead"
	RoleMember UserRole = "member"
)

type UserStatus string

const (
	UserAvailable UserStatus = "available"
	UserBusy      UserStatus = "busy"
	UserOffline   UserStatus = "offline"
)

type LineStatus string

const (
	LineAvailable   LineStatus = "available"
	LineBusy        LineStatus = "busy"
	LineMaintenance LineStatus = "maintenance"
)

type LineType string

const (
	LineBusiness  LineType = "business"
	LineEmergency LineType = "emergency"
	LinePersonal  LineType = "personal"
)

type ConditionType string

const (
	ConditionPhonePattern ConditionType = "phone_pattern"
	ConditionTimeBased    ConditionType = "time_based"
	ConditionDepartment   ConditionType = "department"
)

type CommunicationType string

const (
	TypeCall      CommunicationType = "call"
	TypeSMS       CommunicationType = "sms"
	TypeVoicemail CommunicationType = "voicemail"
)

type CommunicationStatus string

const (
	CommActive    CommunicationStatus = "active"
	CommCompleted CommunicationStatus = "completed"
	CommMissed    CommunicationStatus = "missed"
)

// GeneralDepartment marks lines usable by any department.
const GeneralDepartment = "general"

type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	DepartmentID string     `db:"department_id" json:"department_id"`
	Role         UserRole   `db:"role" json:"role"`
	PhoneNumber  *string    `db:"phone_number" json:"phone_number"`
	Status       UserStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

type Department struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	LeadUserID *string   `db:"lead_user_id" json:"lead_user_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type DepartmentWithMembers struct {
	Department
	Members      []User   `json:"members"`
	PhoneNumbers []string `json:"phone_numbers"`
}

type PhoneNumber struct {
	Number             string     `db:"phone_number" json:"phone_number"`
	DepartmentID       *string    `db:"department_id" json:"department_id"`
	UserID             *string    `db:"user_id" json:"user_id"`
	Status             LineStatus `db:"status" json:"status"`
	Type               LineType   `db:"type" json:"type"`
	Priority           int        `db:"priority" json:"priority"`
	MaxConcurrentCalls int        `db:"max_concurrent_calls" json:"max_concurrent_calls"`
	CurrentCalls       int        `db:"current_calls" json:"current_calls"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// Utilization returns current load as a percentage of capacity.
func (p PhoneNumber) Utilization() float64 {
	if p.MaxConcurrentCalls <= 0 {
		return 0
	}

	return float64(p.CurrentCalls) / float64(p.MaxConcurrentCalls) * 100
}

type RoutingRule struct {
	ID               string        `db:"id" json:"id"`
	Priority         int           `db:"priority" json:"priority"`
	ConditionType    ConditionType `db:"condition_type" json:"condition_type"`
	ConditionValue   string        `db:"condition_value" json:"condition_value"`
	TargetDepartment string        `db:"target_department" json:"target_department"`
	TargetUser       *string       `db:"target_user" json:"target_user"`
	IsActive         bool          `db:"is_active" json:"is_active"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

type Communication struct {
	ID            string              `db:"id" json:"id"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	FromNumber    string              `db:"from_number" json:"from_number"`
	ToNumber      string              `db:"to_number" json:"to_number"`
	UserID        *string             `db:"user_id" json:"user_id"`
	DepartmentID  string              `db:"department_id" json:"department_id"`
	Type          CommunicationType   `db:"type" json:"type"`
	Content       string              `db:"content" json:"content"`
	Status        CommunicationStatus `db:"status" json:"status"`
	Duration      *int                `db:"duration" json:"duration"`
	RoutedNumber  *string             `db:"routed_number" json:"routed_number"`
	RoutingMethod string              `db:"routing_method" json:"routing_method"`
	RoutingReason string              `db:"routing_reason" json:"routing_reason"`
	EndedAt       *time.Time          `db:"ended_at" json:"ended_at"`
}

// CallRouting is the audit row of a single line-routing decision.
type CallRouting struct {
	ID              string              `db:"id" json:"id"`
	CommunicationID string              `db:"communication_id" json:"communication_id"`
	FromNumber      string              `db:"from_number" json:"from_number"`
	ToNumber        string              `db:"to_number" json:"to_number"`
	RoutedToNumber  *string             `db:"routed_to_number" json:"routed_to_number"`
	RoutedToUser    *string             `db:"routed_to_user" json:"routed_to_user"`
	Department      string              `db:"department" json:"department"`
	RoutingReason   string              `db:"routing_reason" json:"routing_reason"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	CallDuration    *int                `db:"call_duration" json:"call_duration"`
	Status          CommunicationStatus `db:"status" json:"status"`
}

type PhoneStats struct {
	PhoneNumber   string  `db:"phone_number" json:"phone_number"`
	DepartmentID  *string `db:"department_id" json:"department_id"`
	Date          string  `db:"date" json:"date"`
	TotalCalls    int     `db:"total_calls" json:"total_calls"`
	TotalSMS      int     `db:"total_sms" json:"total_sms"`
	TotalDuration int     `db:"total_duration" json:"total_duration"`
}

// HistoryMatch is the most frequent prior assignment for a caller.
type HistoryMatch struct {
	DepartmentID     string  `db:"department_id" json:"department_id"`
	UserID           *string `db:"user_id" json:"user_id"`
	InteractionCount int     `db:"interaction_count" json:"interaction_count"`
}

// StatsDate formats t as the PhoneStats day key.
func StatsDate(t time.Time) string {
	return t.Format("2006-01-02")
}

type LineScope int

const (
	// ScopeDepartment selects lines owned by LineQuery.DepartmentID.
	ScopeDepartment LineScope = iota
	// ScopeGeneral selects unassigned lines and lines of the general department.
	ScopeGeneral
	// ScopeAny selects every line.
	ScopeAny
)

type LineQuery struct {
	Scope        LineScope
	DepartmentID string
	MinPriority  int
}

type StatsDelta struct {
	Calls    int
	SMS      int
	Duration int
}
