package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"go.uber.org/zap"
)

var (
	readOnly   = []string{model.ActionRead}
	readWrite  = []string{model.ActionRead, model.ActionCreate, model.ActionUpdate}
	fullAccess = []string{
		model.ActionRead, model.ActionCreate, model.ActionUpdate, model.ActionDelete,
		model.ActionRestore, model.ActionApprove,
	}
)

// defaultGrants is the global permission template per role. TenantAdmin is not listed
// because it passes every check.
var defaultGrants = map[string]map[string][]string{
	identity.RoleEmployee: {
		model.ResourceBooking:           readWrite,
		model.ResourceFacility:          readOnly,
		model.ResourceProject:           readOnly,
		model.ResourceWbsElement:        readOnly,
		model.ResourceAssignment:        readOnly,
		model.ResourceAssignmentRequest: readWrite,
		model.ResourceResumeProfile:     readWrite,
		model.ResourceHoliday:           readOnly,
		model.ResourceFeedback:          readWrite,
		model.ResourceHelpArticle:       readOnly,
	},
	identity.RoleViewOnly: {
		model.ResourceBooking:     readOnly,
		model.ResourceFacility:    readOnly,
		model.ResourceProject:     readOnly,
		model.ResourceWbsElement:  readOnly,
		model.ResourceHoliday:     readOnly,
		model.ResourceHelpArticle: readOnly,
	},
	identity.RoleTeamLead: {
		model.ResourceProject:           readOnly,
		model.ResourceWbsElement:        readOnly,
		model.ResourceProjectAssignment: readWrite,
		model.ResourceAssignment:        readWrite,
		model.ResourceAssignmentRequest: readWrite,
	},
	identity.RoleProjectManager: {
		model.ResourceProject:           readWrite,
		model.ResourceWbsElement:        fullAccess,
		model.ResourceProjectAssignment: fullAccess,
		model.ResourceAssignment:        fullAccess,
		model.ResourceAssignmentRequest: fullAccess,
	},
	identity.RoleResourceManager: {
		model.ResourceProject:           readOnly,
		model.ResourceWbsElement:        readOnly,
		model.ResourceProjectAssignment: fullAccess,
		model.ResourceAssignment:        fullAccess,
		model.ResourceAssignmentRequest: fullAccess,
		model.ResourceBooking:           fullAccess,
		model.ResourceHoliday:           {model.ActionRead, model.ActionCreate, model.ActionUpdate, model.ActionApprove},
	},
	identity.RoleOfficeManager: {
		model.ResourceFacility: append(fullAccess, model.ActionExport),
		model.ResourceBooking:  fullAccess,
		model.ResourceHoliday:  fullAccess,
	},
	identity.RoleExecutive: {
		model.ResourceProject:          readOnly,
		model.ResourceWbsElement:       readOnly,
		model.ResourceSalesOpportunity: readOnly,
		model.ResourceSalesAccount:     readOnly,
		model.ResourceContractVehicle:  readOnly,
		model.ResourceEmployeeCostRate: readOnly,
		model.ResourceDataArchive:      readOnly,
	},
	identity.RoleOverrideApprover: {
		model.ResourceWbsElement:        {model.ActionRead, model.ActionApprove},
		model.ResourceAssignment:        {model.ActionRead, model.ActionApprove},
		model.ResourceAssignmentRequest: {model.ActionRead, model.ActionApprove},
	},
	identity.RoleResumeViewer: {
		model.ResourceResumeProfile: readOnly,
	},
	identity.RoleFinanceLead: {
		model.ResourceEmployeeCostRate: append(fullAccess, model.ActionExport, model.ActionImport),
		model.ResourceDataArchive:      readOnly,
	},
	identity.RoleBusinessDeveloper: {
		model.ResourceSalesOpportunity: fullAccess,
		model.ResourceSalesAccount:     fullAccess,
		model.ResourceSalesContact:     fullAccess,
		model.ResourceSalesCustomField: readOnly,
		model.ResourceContractVehicle:  fullAccess,
		model.ResourceSalesPicklist:    readOnly,
	},
}

// DefaultPermissions expands the default grants into global template rows
func DefaultPermissions() []model.RolePermission {
	roles := make([]string, 0, len(defaultGrants))
	for role := range defaultGrants {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var rows []model.RolePermission
	for _, role := range roles {
		resources := make([]string, 0, len(defaultGrants[role]))
		for resource := range defaultGrants[role] {
			resources = append(resources, resource)
		}
		sort.Strings(resources)
		for _, resource := range resources {
			for _, action := range defaultGrants[role][resource] {
				rows = append(rows, model.RolePermission{Role: role, Resource: resource, Action: action})
			}
		}
	}
	return rows
}

// Grant is one resource and action the caller may use
type Grant struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type PermissionService struct {
	repo repository.PermissionRepository
}

func NewPermissionService(repo repository.PermissionRepository) *PermissionService {
	return &PermissionService{repo: repo}
}

// SeedDefaults writes the global templates when none exist yet
func (s *PermissionService) SeedDefaults(ctx context.Context) error {
	count, err := s.repo.CountGlobal(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rows := DefaultPermissions()
	if err := s.repo.CreateAll(ctx, rows); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Seeded default role permissions", zap.Int("count", len(rows)))
	return nil
}

// Allowed reports whether the actor may perform action on resource in its tenant
func (s *PermissionService) Allowed(ctx context.Context, actor Actor, resource, action string) (bool, error) {
	if actor.HasAnyRole(identity.RoleTenantAdmin) {
		return true, nil
	}
	return s.repo.HasGrant(ctx, actor.TenantID, actor.Roles, resource, action)
}

// Effective lists the distinct grants of the actor, or every pair for admins
func (s *PermissionService) Effective(ctx context.Context, actor Actor) ([]Grant, error) {
	if actor.HasAnyRole(identity.RoleTenantAdmin) {
		return allGrants(), nil
	}

	rows, err := s.repo.ForRoles(ctx, actor.TenantID, actor.Roles)
	if err != nil {
		return nil, err
	}

	seen := make(map[Grant]bool, len(rows))
	grants := make([]Grant, 0, len(rows))
	for _, row := range rows {
		g := Grant{Resource: row.Resource, Action: row.Action}
		if seen[g] {
			continue
		}
		seen[g] = true
		grants = append(grants, g)
	}
	return grants, nil
}

func allGrants() []Grant {
	resources := []string{
		model.ResourceProjectAssignment, model.ResourceAssignment, model.ResourceAssignmentRequest,
		model.ResourceWbsElement, model.ResourceProject, model.ResourceBooking, model.ResourceFacility,
		model.ResourceEmployeeCostRate, model.ResourceSalesOpportunity, model.ResourceSalesAccount,
		model.ResourceSalesContact, model.ResourceSalesCustomField, model.ResourceContractVehicle,
		model.ResourceSalesPicklist, model.ResourceResumeProfile,
		model.ResourceHoliday, model.ResourceFeedback, model.ResourceHelpArticle,
		model.ResourceDataArchive, model.ResourceTenantMembership, model.ResourceUser,
	}
	actions := []string{
		model.ActionRead, model.ActionCreate, model.ActionUpdate, model.ActionDelete,
		model.ActionHardDelete, model.ActionRestore, model.ActionApprove, model.ActionExport,
		model.ActionImport,
	}
	grants := make([]Grant, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			grants = append(grants, Grant{Resource: r, Action: a})
		}
	}
	return grants
}

// ActorFor builds an actor from a verified membership
func ActorFor(userID, tenantID uuid.UUID, access *identity.Access) Actor {
	actor := Actor{UserID: userID, TenantID: tenantID}
	if access != nil {
		actor.Roles = access.Roles()
		actor.IsSystemAdmin = access.User.IsSystemAdmin
	}
	return actor
}

// PermissionGate resolves the caller's roles in a tenant before checking a grant
type PermissionGate struct {
	access AccessVerifier
	perms  *PermissionService
}

func NewPermissionGate(access AccessVerifier, perms *PermissionService) *PermissionGate {
	return &PermissionGate{access: access, perms: perms}
}

// Allowed reports false for non-members instead of an error
func (g *PermissionGate) Allowed(ctx context.Context, userID, tenantID uuid.UUID, resource, action string) (bool, error) {
	access, err := g.access.VerifyUserAccess(ctx, userID, tenantID)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return false, nil
		}
		return false, err
	}
	return g.perms.Allowed(ctx, ActorFor(userID, tenantID, access), resource, action)
}
