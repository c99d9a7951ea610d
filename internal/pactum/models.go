package pactum

import "github.com/pactum-saas/pactum-web/internal/shared"

// Timestamps travel as the API's ISO-8601 strings; pages only display them.

// LoginResult is the answer of POST /auth/login.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        shared.Identity `json:"user"`
}

// CompanyRegistration is the public self-registration payload.
type CompanyRegistration struct {
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	AdminName       string   `json:"admin_name"`
	AdminEmail      string   `json:"admin_email"`
	AdminPassword   string   `json:"admin_password"`
	SelectedModules []string `json:"selected_modules"`
}

type Company struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	Phone              string        `json:"phone,omitempty"`
	LogoURL            string        `json:"logo_url,omitempty"`
	PrimaryColor       string        `json:"primary_color,omitempty"`
	SecondaryColor     string        `json:"secondary_color,omitempty"`
	Status             string        `json:"status"`
	SubscriptionStatus string        `json:"subscription_status"`
	TrialEndsAt        string        `json:"trial_ends_at,omitempty"`
	ActiveModules      []string      `json:"active_modules"`
	UserCount          int           `json:"user_count"`
	ClientCount        int           `json:"client_count"`
	Users              []CompanyUser `json:"users,omitempty"`
	CreatedAt          string        `json:"created_at"`
}

// CompanyUpdate only sends the fields that were set.
type CompanyUpdate struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	PrimaryColor   *string `json:"primary_color,omitempty"`
	SecondaryColor *string `json:"secondary_color,omitempty"`
	Status         *string `json:"status,omitempty"`
}

type Module struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type SubscriptionUpdate struct {
	Status             string `json:"status"`
	PlanType           string `json:"plan_type,omitempty"`
	TrialDaysExtension int    `json:"trial_days_extension,omitempty"`
}

type GlobalMetrics struct {
	TotalCompanies  int `json:"total_companies"`
	ActiveCompanies int `json:"active_companies"`
	TrialCompanies  int `json:"trial_companies"`
	PaidCompanies   int `json:"paid_companies"`
	TotalUsers      int `json:"total_users"`
}

type CompanyUser struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Role             shared.Role `json:"role"`
	IsActive         bool        `json:"is_active"`
	AssignedProjects []string    `json:"assigned_projects,omitempty"`
}

type CompanyUserInput struct {
	Name             string      `json:"name"`
	Email            string      `json:"email"`
	Password         string      `json:"password,omitempty"`
	Role             shared.Role `json:"role"`
	AssignedProjects []string    `json:"assigned_projects"`
}

type DashboardStats struct {
	TotalClients        int        `json:"total_clients"`
	ActiveClients       int        `json:"active_clients"`
	TotalActivities     int        `json:"total_activities"`
	PendingActivities   int        `json:"pending_activities"`
	CompletedActivities int        `json:"completed_activities"`
	TotalUsers          int        `json:"total_users"`
	RecentActivities    []Activity `json:"recent_activities"`
	RecentClients       []Client   `json:"recent_clients"`
}

type ActivityLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	UserName   string         `json:"user_name"`
	Changes    map[string]any `json:"changes,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

type Client struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes,omitempty"`
	Status      string   `json:"status,omitempty"`
}

type ClientInput struct {
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes,omitempty"`
	Status      string   `json:"status,omitempty"`
}

type Activity struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type"`
	ClientID       string `json:"client_id,omitempty"`
	ClientName     string `json:"client_name,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	Completed      bool   `json:"completed"`
}

type ActivityInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	ClientID    string `json:"client_id,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
}

// ActivityFilter narrows GET /activities.
type ActivityFilter struct {
	ClientID string
	Status   string
	Type     string
}

type Project struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	ClientID           string   `json:"client_id,omitempty"`
	ClientName         string   `json:"client_name,omitempty"`
	ContractNumber     string   `json:"contract_number,omitempty"`
	StartDate          string   `json:"start_date,omitempty"`
	EndDate            string   `json:"end_date,omitempty"`
	EstimatedDays      int      `json:"estimated_days,omitempty"`
	TotalUSD           float64  `json:"total_usd"`
	TotalCordobas      float64  `json:"total_cordobas"`
	ExchangeRate       float64  `json:"exchange_rate,omitempty"`
	Status             string   `json:"status"`
	ProgressPercentage float64  `json:"progress_percentage"`
	AssignedUsers      []string `json:"assigned_users,omitempty"`
	Deliverables       []string `json:"deliverables,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

type ProjectUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Status        *string  `json:"status,omitempty"`
	EndDate       *string  `json:"end_date,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	AssignedUsers []string `json:"assigned_users,omitempty"`
}

// Kanban column identifiers, in display order.
const (
	StatusBacklog    = "backlog"
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusDone       = "done"
)

// TaskStatuses lists every valid task status.
var TaskStatuses = []string{StatusBacklog, StatusTodo, StatusInProgress, StatusReview, StatusDone}

type Task struct {
	ID             string       `json:"id"`
	ProjectID      string       `json:"project_id"`
	PhaseID        string       `json:"phase_id,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         string       `json:"status"`
	Priority       string       `json:"priority"`
	Week           int          `json:"week,omitempty"`
	AssignedTo     string       `json:"assigned_to,omitempty"`
	AssignedToName string       `json:"assigned_to_name,omitempty"`
	EstimatedHours float64      `json:"estimated_hours,omitempty"`
	ActualHours    float64      `json:"actual_hours,omitempty"`
	DueDate        string       `json:"due_date,omitempty"`
	TechnicalNotes string       `json:"technical_notes,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      string       `json:"created_at,omitempty"`
	UpdatedAt      string       `json:"updated_at,omitempty"`
}

type TaskInput struct {
	ProjectID      string  `json:"project_id,omitempty"`
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	AssignedTo     string  `json:"assigned_to,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
	DueDate        string  `json:"due_date,omitempty"`
	TechnicalNotes string  `json:"technical_notes,omitempty"`
}

// TaskFilter narrows GET /tasks. An empty ProjectID lets the API scope by the
// caller's own assignments.
type TaskFilter struct {
	ProjectID string
	Week      int
}

type Comment struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	UserID        string   `json:"user_id,omitempty"`
	UserName      string   `json:"user_name"`
	AudioURL      string   `json:"audio_url,omitempty"`
	AudioDuration float64  `json:"audio_duration,omitempty"`
	Images        []string `json:"images,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type Attachment struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

type Reassignment struct {
	ID               string `json:"id"`
	TaskID           string `json:"task_id"`
	TaskTitle        string `json:"task_title"`
	FromUserName     string `json:"from_user_name"`
	ToUserName       string `json:"to_user_name"`
	ReassignedByName string `json:"reassigned_by_name"`
	Reason           string `json:"reason"`
	ReassignedAt     string `json:"reassigned_at"`
}

type ReassignInput struct {
	NewAssignedTo string `json:"new_assigned_to"`
	Reason        string `json:"reason"`
}

type Phase struct {
	ID               string         `json:"id"`
	ProjectID        string         `json:"project_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Week             int            `json:"week"`
	StartDate        string         `json:"start_date"`
	EndDate          string         `json:"end_date"`
	Deliverables     []string       `json:"deliverables"`
	ApprovalCriteria string         `json:"approval_criteria"`
	Status           string         `json:"status"`
	Progress         float64        `json:"progress"`
	IsApproved       bool           `json:"is_approved"`
	ApprovedAt       string         `json:"approved_at,omitempty"`
	Comments         []PhaseComment `json:"comments"`
}

type PhaseComment struct {
	Text      string `json:"text"`
	UserName  string `json:"user_name"`
	CreatedAt string `json:"created_at"`
}

type PhaseUpdate struct {
	Status   *string  `json:"status,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

type Payment struct {
	ID             string  `json:"id"`
	ProjectID      string  `json:"project_id"`
	PhaseID        string  `json:"phase_id,omitempty"`
	Description    string  `json:"description"`
	Percentage     int     `json:"percentage"`
	AmountCordobas float64 `json:"amount_cordobas"`
	AmountUSD      float64 `json:"amount_usd"`
	DueDate        string  `json:"due_date"`
	Status         string  `json:"status"`
	PaidAt         string  `json:"paid_at,omitempty"`
	Reference      string  `json:"reference,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

type PaymentUpdate struct {
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type Document struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id,omitempty"`
	Name           string `json:"name"`
	DocumentType   string `json:"document_type,omitempty"`
	FileURL        string `json:"file_url"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
	UploadedByName string `json:"uploaded_by_name,omitempty"`
	UploadedAt     string `json:"uploaded_at"`
	ExtractedText  string `json:"extracted_text,omitempty"`
}

type FinancialSummary struct {
	TotalIncome      float64 `json:"total_income"`
	TotalAssigned    float64 `json:"total_assigned"`
	AvailableBalance float64 `json:"available_balance"`
	TotalReserves    float64 `json:"total_reserves"`
	ProjectedBalance float64 `json:"projected_balance"`
}

type FinancialLine struct {
	Concept        string  `json:"concept"`
	PlannedAmount  float64 `json:"planned_amount,omitempty"`
	ReserveAmount  float64 `json:"reserve_amount,omitempty"`
	ExecutedAmount float64 `json:"executed_amount"`
	StatusNote     string  `json:"status_note,omitempty"`
}

type FinancialReport struct {
	TotalIncome float64         `json:"total_income"`
	Payments    []FinancialLine `json:"payments"`
	Reserves    []FinancialLine `json:"reserves"`
}

// Summarize derives the summary figures from a report the way the API does.
func (r FinancialReport) Summarize() FinancialSummary {
	var assigned, reserves float64
	for _, p := range r.Payments {
		assigned += p.ExecutedAmount
	}
	for _, res := range r.Reserves {
		reserves += res.ReserveAmount
	}
	available := r.TotalIncome - assigned
	return FinancialSummary{
		TotalIncome:      r.TotalIncome,
		TotalAssigned:    assigned,
		AvailableBalance: available,
		TotalReserves:    reserves,
		ProjectedBalance: available - reserves,
	}
}
