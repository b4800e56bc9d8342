package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/spreadsheet"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

const (
	dateLayout        = "2006-01-02"
	maxImportErrors   = 50
	minImportColumns  = 5
	costRateSheetName = "CostRates"
)

// CostRateHeader is the column layout shared by export and import
var CostRateHeader = []string{"Email", "DisplayName", "EffectiveDate", "EndDate", "LoadedCostRate", "Notes"}

// CostRateInput carries the writable cost rate fields. Nil fields keep their current value on update.
type CostRateInput struct {
	UserID         *uuid.UUID
	EffectiveDate  *time.Time
	EndDate        *time.Time
	LoadedCostRate *decimal.Decimal
	Notes          *string
}

// ImportResult reports the outcome of a cost rate import
type ImportResult struct {
	Batch  *model.CostRateImportBatch `json:"batch"`
	Errors []string                   `json:"errors"`
}

type CostRateService struct {
	repo  repository.CostRateRepository
	users UserDirectory
	now   Clock
}

func NewCostRateService(repo repository.CostRateRepository, users UserDirectory) *CostRateService {
	return &CostRateService{repo: repo, users: users, now: time.Now}
}

func (s *CostRateService) List(ctx context.Context, tenantID uuid.UUID, filter repository.CostRateFilter) ([]model.EmployeeCostRate, error) {
	if filter.AsOf.IsZero() {
		filter.AsOf = dateOnly(s.now())
	}
	return s.repo.List(ctx, tenantID, filter)
}

func (s *CostRateService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.EmployeeCostRate, error) {
	rate, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Cost rate not found")
	}
	return rate, nil
}

// Effective returns the rate that applies to the user on asOf, today when zero
func (s *CostRateService) Effective(ctx context.Context, tenantID, userID uuid.UUID, asOf time.Time) (*model.EmployeeCostRate, error) {
	if asOf.IsZero() {
		asOf = dateOnly(s.now())
	}
	rate, err := s.repo.Effective(ctx, tenantID, userID, asOf)
	if err != nil {
		return nil, notFound(err, "No effective cost rate found for this user")
	}
	return rate, nil
}

func (s *CostRateService) History(ctx context.Context, tenantID, userID uuid.UUID) ([]model.EmployeeCostRate, error) {
	return s.repo.History(ctx, tenantID, userID)
}

func (s *CostRateService) ImportHistory(ctx context.Context, tenantID uuid.UUID) ([]model.CostRateImportBatch, error) {
	return s.repo.ImportHistory(ctx, tenantID)
}

func (s *CostRateService) Create(ctx context.Context, actor Actor, in CostRateInput) (*model.EmployeeCostRate, error) {
	if in.UserID == nil || in.EffectiveDate == nil || in.LoadedCostRate == nil {
		return nil, apperror.BadRequest("User, effective date and loaded cost rate are required")
	}
	if _, err := s.users.FindMember(ctx, actor.TenantID, *in.UserID); err != nil {
		return nil, badRequestIfMissing(err, "User not found")
	}

	rate := &model.EmployeeCostRate{
		Base:           model.Base{TenantID: actor.TenantID},
		UserID:         *in.UserID,
		EffectiveDate:  dateOnly(*in.EffectiveDate),
		LoadedCostRate: *in.LoadedCostRate,
		Source:         model.CostRateSourceManual,
	}
	if in.EndDate != nil {
		end := dateOnly(*in.EndDate)
		rate.EndDate = &end
	}
	if in.Notes != nil {
		rate.Notes = *in.Notes
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}

	rate.Touch(actor.UserID)
	if err := s.repo.CreateClosingPrevious(ctx, rate); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("cost_rates", "create")
	return rate, nil
}

func (s *CostRateService) Update(ctx context.Context, actor Actor, id uuid.UUID, in CostRateInput) (*model.EmployeeCostRate, error) {
	rate, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Cost rate not found")
	}
	if in.EffectiveDate != nil {
		rate.EffectiveDate = dateOnly(*in.EffectiveDate)
	}
	if in.EndDate != nil {
		end := dateOnly(*in.EndDate)
		rate.EndDate = &end
	}
	if in.LoadedCostRate != nil {
		rate.LoadedCostRate = *in.LoadedCostRate
	}
	if in.Notes != nil {
		rate.Notes = *in.Notes
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}

	rate.Touch(actor.UserID)
	if err := s.repo.Update(ctx, rate); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("cost_rates", "update")
	return rate, nil
}

func (s *CostRateService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return notFound(err, "Cost rate not found")
	}
	prometheus.RecordOperation("cost_rates", "delete")
	return nil
}

// Export writes every cost rate of the tenant, ordered by person then effective date
func (s *CostRateService) Export(ctx context.Context, tenantID uuid.UUID, format string, w io.Writer) error {
	rates, err := s.repo.List(ctx, tenantID, repository.CostRateFilter{IncludeInactive: true})
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(rates))
	for _, r := range rates {
		ids = append(ids, r.UserID)
	}
	users, err := s.users.UsersByID(ctx, ids)
	if err != nil {
		return err
	}

	sort.SliceStable(rates, func(i, j int) bool {
		ei, ej := users[rates[i].UserID].Email, users[rates[j].UserID].Email
		if ei != ej {
			return ei < ej
		}
		return rates[i].EffectiveDate.Before(rates[j].EffectiveDate)
	})

	rows := make([][]string, 0, len(rates))
	for _, r := range rates {
		user := users[r.UserID]
		end := ""
		if r.EndDate != nil {
			end = r.EndDate.Format(dateLayout)
		}
		rows = append(rows, []string{
			user.Email,
			user.DisplayName,
			r.EffectiveDate.Format(dateLayout),
			end,
			r.LoadedCostRate.StringFixed(2),
			r.Notes,
		})
	}

	prometheus.RecordOperation("cost_rates", "export")
	if format == spreadsheet.FormatXLSX {
		return spreadsheet.WriteXLSX(w, spreadsheet.Sheet{Name: costRateSheetName, Header: CostRateHeader, Rows: rows})
	}
	return spreadsheet.WriteCSV(w, CostRateHeader, rows)
}

// Import loads rates from a .csv or .xlsx file. Rows that fail validation are reported and
// skipped; the rest are saved with the same auto-close rule as manual entry.
func (s *CostRateService) Import(ctx context.Context, actor Actor, fileName string, r io.Reader) (*ImportResult, error) {
	format := spreadsheet.FormatFromFileName(fileName)
	if format == "" {
		return nil, apperror.BadRequest("Only .csv and .xlsx files are supported")
	}
	source := model.CostRateSourceCsvImport
	if format == spreadsheet.FormatXLSX {
		source = model.CostRateSourceExcelImport
	}

	batch := &model.CostRateImportBatch{
		Base:             model.Base{TenantID: actor.TenantID},
		FileName:         fileName,
		ImportedByUserID: actor.UserID,
		ImportedAt:       s.now().UTC(),
		Status:           model.ImportProcessing,
	}
	batch.Touch(actor.UserID)
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	var rows []spreadsheet.Row
	var err error
	if format == spreadsheet.FormatXLSX {
		rows, err = spreadsheet.ReadXLSX(r)
	} else {
		rows, err = spreadsheet.ReadCSV(r)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to parse cost rate file", zap.String("file", fileName), zap.Error(err))
		batch.Status = model.ImportFailed
		batch.ErrorDetails = mustJSON([]string{err.Error()})
		if uerr := s.repo.UpdateBatch(ctx, batch); uerr != nil {
			return nil, uerr
		}
		return nil, apperror.BadRequest("Unable to read the uploaded file")
	}

	var errs []string
	addError := func(msg string, args ...any) {
		batch.ErrorCount++
		if len(errs) < maxImportErrors {
			errs = append(errs, fmt.Sprintf(msg, args...))
		}
	}

	emails := map[string]uuid.UUID{}
	var rates []*model.EmployeeCostRate
	batch.TotalRecords = len(rows)
	for _, row := range rows {
		if len(row.Cells) < minImportColumns {
			addError("Line %d: Insufficient columns", row.Line)
			continue
		}

		email := strings.ToLower(row.Cells[0])
		userID, ok := emails[email]
		if !ok {
			user, err := s.users.FindMemberByEmail(ctx, actor.TenantID, email)
			if err != nil {
				if !database.IsNotFound(err) {
					return nil, s.failBatch(ctx, batch, err)
				}
				addError("Line %d: User not found - %s", row.Line, row.Cells[0])
				continue
			}
			userID = user.ID
			emails[email] = userID
		}

		effective, err := time.Parse(dateLayout, row.Cells[2])
		if err != nil {
			addError("Line %d: Invalid effective date", row.Line)
			continue
		}

		var endDate *time.Time
		if row.Cells[3] != "" {
			end, err := time.Parse(dateLayout, row.Cells[3])
			if err != nil {
				addError("Line %d: Invalid end date", row.Line)
				continue
			}
			endDate = &end
		}

		amount, err := decimal.NewFromString(row.Cells[4])
		if err != nil || !amount.IsPositive() {
			addError("Line %d: Invalid rate", row.Line)
			continue
		}

		rate := &model.EmployeeCostRate{
			Base:           model.Base{TenantID: actor.TenantID},
			UserID:         userID,
			EffectiveDate:  effective,
			EndDate:        endDate,
			LoadedCostRate: amount,
			Source:         source,
			ImportBatchID:  &batch.ID,
		}
		if len(row.Cells) > minImportColumns {
			rate.Notes = row.Cells[5]
		}
		if err := validateRate(rate); err != nil {
			addError("Line %d: End date before effective date", row.Line)
			continue
		}

		rate.Touch(actor.UserID)
		rates = append(rates, rate)
	}

	batch.SuccessCount = len(rates)
	batch.Status = model.ImportCompleted
	if batch.ErrorCount > 0 {
		batch.Status = model.ImportCompletedWithErrors
		batch.ErrorDetails = mustJSON(errs)
	}
	if err := s.repo.ImportRates(ctx, batch, rates); err != nil {
		return nil, s.failBatch(ctx, batch, err)
	}

	prometheus.RecordImportRows(batch.SuccessCount, batch.ErrorCount)
	prometheus.RecordOperation("cost_rates", "import")
	logger.FromContext(ctx).Info("Cost rate import finished",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("total", batch.TotalRecords),
		zap.Int("success", batch.SuccessCount),
		zap.Int("errors", batch.ErrorCount))

	if errs == nil {
		errs = []string{}
	}
	return &ImportResult{Batch: batch, Errors: errs}, nil
}

// failBatch records a batch that could not be saved. None of its rates were kept.
func (s *CostRateService) failBatch(ctx context.Context, batch *model.CostRateImportBatch, cause error) error {
	logger.FromContext(ctx).Error("Cost rate import failed",
		zap.String("batch_id", batch.ID.String()),
		zap.Error(cause))
	batch.Status = model.ImportFailed
	batch.SuccessCount = 0
	batch.ErrorDetails = mustJSON([]string{"Import failed, no rows were saved"})
	if err := s.repo.UpdateBatch(ctx, batch); err != nil {
		logger.FromContext(ctx).Error("Failed to mark import batch as failed",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err))
	}
	return cause
}

func validateRate(rate *model.EmployeeCostRate) error {
	if !rate.LoadedCostRate.IsPositive() {
		return apperror.BadRequest("Loaded cost rate must be greater than zero")
	}
	if rate.EndDate != nil && rate.EndDate.Before(rate.EffectiveDate) {
		return apperror.BadRequest("End date must not be before effective date")
	}
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
