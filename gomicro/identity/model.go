// Package identity holds the user, tenant and membership records shared by the services.
package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant roles
const (
	RoleEmployee          = "Employee"
	RoleViewOnly          = "ViewOnly"
	RoleTeamLead          = "TeamLead"
	RoleProjectManager    = "ProjectManager"
	RoleResourceManager   = "ResourceManager"
	RoleOfficeManager     = "OfficeManager"
	RoleTenantAdmin       = "TenantAdmin"
	RoleExecutive         = "Executive"
	RoleOverrideApprover  = "OverrideApprover"
	RoleResumeViewer      = "ResumeViewer"
	RoleFinanceLead       = "FinanceLead"
	RoleBusinessDeveloper = "BusinessDeveloper"
)

// AllRoles lists every tenant role
var AllRoles = []string{
	RoleEmployee, RoleViewOnly, RoleTeamLead, RoleProjectManager, RoleResourceManager,
	RoleOfficeManager, RoleTenantAdmin, RoleExecutive, RoleOverrideApprover, RoleResumeViewer,
	RoleFinanceLead, RoleBusinessDeveloper,
}

// IsValidRole reports whether role is a known tenant role
func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a person who can sign in
type User struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email         string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName   string    `json:"display_name" gorm:"type:varchar(200)"`
	PasswordHash  string    `json:"-" gorm:"type:varchar(255)"`
	IsSystemAdmin bool      `json:"is_system_admin" gorm:"not null"`
	IsActive      bool      `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Tenant is the isolation boundary for a customer organization
type Tenant struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string            `json:"name" gorm:"type:varchar(200);uniqueIndex;not null"`
	Description string            `json:"description" gorm:"type:text"`
	OwnerID     uuid.UUID         `json:"owner_id" gorm:"type:uuid;index;not null"`
	IsActive    bool              `json:"is_active" gorm:"not null"`
	Settings    datatypes.JSONMap `json:"settings,omitempty" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TenantMembership links a user to a tenant with a set of roles
type TenantMembership struct {
	ID        uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID                   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_tenant"`
	TenantID  uuid.UUID                   `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_membership_user_tenant;index"`
	Roles     datatypes.JSONSlice[string] `json:"roles" gorm:"type:jsonb"`
	IsDefault bool                        `json:"is_default" gorm:"not null"`
	IsActive  bool                        `json:"is_active" gorm:"not null"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`

	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

func (m *TenantMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// HasAnyRole reports whether the membership holds at least one of roles
func (m *TenantMembership) HasAnyRole(roles ...string) bool {
	for _, held := range m.Roles {
		for _, r := range roles {
			if held == r {
				return true
			}
		}
	}
	return false
}

// LoginAudit records one sign-in attempt. UserID is nil when the email matched no user.
type LoginAudit struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty" gorm:"type:uuid"`
	Email         string     `json:"email" gorm:"type:varchar(255);index"`
	IsSuccess     bool       `json:"is_success" gorm:"not null"`
	FailureReason string     `json:"failure_reason,omitempty" gorm:"type:varchar(50)"`
	IPAddress     string     `json:"ip_address" gorm:"type:varchar(64)"`
	UserAgent     string     `json:"user_agent" gorm:"type:varchar(512)"`
	CreatedAt     time.Time  `json:"created_at" gorm:"index"`
}

func (a *LoginAudit) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Models returns the identity models for migration
func Models() []interface{} {
	return []interface{}{&User{}, &Tenant{}, &TenantMembership{}, &LoginAudit{}}
}
