package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission resources
const (
	ResourceProjectAssignment = "ProjectAssignment"
	ResourceAssignment        = "Assignment"
	ResourceAssignmentRequest = "AssignmentRequest"
	ResourceWbsElement        = "WbsElement"
	ResourceProject           = "Project"
	ResourceBooking           = "Booking"
	ResourceFacility          = "Facility"
	ResourceEmployeeCostRate  = "EmployeeCostRate"
	ResourceSalesOpportunity  = "SalesOpportunity"
	ResourceSalesAccount      = "SalesAccount"
	ResourceSalesContact      = "SalesContact"
	ResourceSalesCustomField  = "SalesCustomField"
	ResourceContractVehicle   = "ContractVehicle"
	ResourceSalesPicklist     = "SalesPicklist"
	ResourceResumeProfile     = "ResumeProfile"
	ResourceHoliday           = "Holiday"
	ResourceFeedback          = "Feedback"
	ResourceHelpArticle       = "HelpArticle"
	ResourceDataArchive       = "DataArchive"
	ResourceTenantMembership  = "TenantMembership"
	ResourceUser              = "User"
)

// Permission actions
const (
	ActionRead       = "Read"
	ActionCreate     = "Create"
	ActionUpdate     = "Update"
	ActionDelete     = "Delete"
	ActionHardDelete = "HardDelete"
	ActionRestore    = "Restore"
	ActionApprove    = "Approve"
	ActionExport     = "Export"
	ActionImport     = "Import"
)

// RolePermission grants a role one action on one resource.
// Rows with a nil TenantID are global templates.
type RolePermission struct {
	ID       uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty" gorm:"type:uuid;index"`
	Role     string     `json:"role" gorm:"type:varchar(50);index;not null"`
	Resource string     `json:"resource" gorm:"type:varchar(50);not null"`
	Action   string     `json:"action" gorm:"type:varchar(20);not null"`
}

func (p *RolePermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
