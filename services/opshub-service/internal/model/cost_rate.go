package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Cost rate sources
const (
	CostRateSourceManual         = "ManualEntry"
	CostRateSourceCsvImport      = "CsvImport"
	CostRateSourceExcelImport    = "ExcelImport"
	CostRateSourceBulkAdjustment = "BulkAdjustment"
)

// Import batch statuses
const (
	ImportProcessing          = "Processing"
	ImportCompleted           = "Completed"
	ImportCompletedWithErrors = "CompletedWithErrors"
	ImportFailed              = "Failed"
)

// EmployeeCostRate is a person's loaded hourly cost over an effective period
type EmployeeCostRate struct {
	Base
	UserID         uuid.UUID       `json:"user_id" gorm:"type:uuid;index;not null"`
	EffectiveDate  time.Time       `json:"effective_date" gorm:"type:date;index;not null"`
	EndDate        *time.Time      `json:"end_date,omitempty" gorm:"type:date"`
	LoadedCostRate decimal.Decimal `json:"loaded_cost_rate" gorm:"type:numeric(18,2);not null"`
	Notes          string          `json:"notes" gorm:"type:text"`
	Source         string          `json:"source" gorm:"type:varchar(30);not null"`
	ImportBatchID  *uuid.UUID      `json:"import_batch_id,omitempty" gorm:"type:uuid"`
}

// ActiveOn reports whether the rate applies on day
func (r *EmployeeCostRate) ActiveOn(day time.Time) bool {
	if r.EffectiveDate.After(day) {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(day)
}

// CostRateImportBatch summarizes one uploaded cost rate file
type CostRateImportBatch struct {
	Base
	FileName         string         `json:"file_name" gorm:"type:varchar(255);not null"`
	ImportedByUserID uuid.UUID      `json:"imported_by_user_id" gorm:"type:uuid;not null"`
	ImportedAt       time.Time      `json:"imported_at" gorm:"index;not null"`
	TotalRecords     int            `json:"total_records"`
	SuccessCount     int            `json:"success_count"`
	ErrorCount       int            `json:"error_count"`
	Status           string         `json:"status" gorm:"type:varchar(30);not null"`
	ErrorDetails     datatypes.JSON `json:"error_details,omitempty" gorm:"type:jsonb"`
}
