package model

// All returns every model owned by the opshub service, in migration order
func All() []interface{} {
	return []interface{}{
		&Office{}, &Space{}, &Booking{}, &CheckInEvent{},
		&Project{}, &WbsElement{}, &WbsChangeHistory{},
		&ProjectAssignment{}, &Assignment{}, &AssignmentHistory{},
		&Group{}, &GroupMember{}, &AssignmentRequest{},
		&EmployeeCostRate{}, &CostRateImportBatch{},
		&CustomFieldDefinition{}, &CustomFieldValue{},
		&SalesAccount{}, &SalesContact{}, &SalesStage{}, &SalesOpportunity{}, &OpportunityTeamMember{},
		&ContractVehicle{}, &SalesPicklistDefinition{}, &SalesPicklistValue{},
		&ResumeProfile{},
		&CompanyHoliday{}, &TimeOffEntry{},
		&Feedback{}, &HelpArticle{},
		&DataArchive{}, &RolePermission{},
	}
}
