package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/cache"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"go.uber.org/zap"
)

const defaultHoursPerDay = 8

// WorkingDays is the availability of one person in one month
type WorkingDays struct {
	UserID         uuid.UUID `json:"user_id"`
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	BusinessDays   int       `json:"business_days"`
	Holidays       int       `json:"holidays"`
	PtoDays        int       `json:"pto_days"`
	WorkingDays    int       `json:"working_days"`
	HoursPerDay    float64   `json:"hours_per_day"`
	AvailableHours float64   `json:"available_hours"`
}

type HolidayInput struct {
	Name        string
	HolidayDate time.Time
	IsObserved  bool
}

type TimeOffInput struct {
	UserID    uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Notes     string
}

type CalendarService struct {
	repo  repository.CalendarRepository
	cache cache.Cache
	ttl   time.Duration
	now   Clock
}

func NewCalendarService(repo repository.CalendarRepository, c cache.Cache, ttl time.Duration) *CalendarService {
	return &CalendarService{repo: repo, cache: c, ttl: ttl, now: time.Now}
}

func (s *CalendarService) Holidays(ctx context.Context, tenantID uuid.UUID, year int) ([]model.CompanyHoliday, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return s.repo.Holidays(ctx, tenantID, from, to)
}

func (s *CalendarService) CreateHoliday(ctx context.Context, actor Actor, in HolidayInput) (*model.CompanyHoliday, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.BadRequest("Holiday name is required")
	}
	holiday := &model.CompanyHoliday{
		Base:        model.Base{TenantID: actor.TenantID},
		Name:        in.Name,
		HolidayDate: dateOnly(in.HolidayDate),
		IsObserved:  in.IsObserved,
	}
	holiday.Touch(actor.UserID)
	if err := s.repo.CreateHoliday(ctx, holiday); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	return holiday, nil
}

func (s *CalendarService) DeleteHoliday(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.DeleteHoliday(ctx, tenantID, id); err != nil {
		return notFound(err, "Holiday not found")
	}
	s.invalidate(ctx, tenantID)
	return nil
}

func (s *CalendarService) TimeOff(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, status string, from, to time.Time) ([]model.TimeOffEntry, error) {
	return s.repo.TimeOff(ctx, tenantID, userID, status, from, to)
}

// CreateTimeOff records leave as Pending. It only counts against working days once reviewed.
func (s *CalendarService) CreateTimeOff(ctx context.Context, actor Actor, in TimeOffInput) (*model.TimeOffEntry, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, apperror.BadRequest("End date cannot be before start date")
	}
	userID := in.UserID
	if userID == uuid.Nil {
		userID = actor.UserID
	}

	entry := &model.TimeOffEntry{
		Base:      model.Base{TenantID: actor.TenantID},
		UserID:    userID,
		StartDate: dateOnly(in.StartDate),
		EndDate:   dateOnly(in.EndDate),
		Status:    model.TimeOffPending,
		Notes:     in.Notes,
	}
	entry.Touch(actor.UserID)
	if err := s.repo.CreateTimeOff(ctx, entry); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	return entry, nil
}

// ReviewTimeOff approves or rejects a pending entry. Reviewers cannot decide their own leave.
func (s *CalendarService) ReviewTimeOff(ctx context.Context, actor Actor, id uuid.UUID, approve bool, notes string) (*model.TimeOffEntry, error) {
	entry, err := s.repo.GetTimeOff(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Time off entry not found")
	}
	if entry.Status != model.TimeOffPending {
		return nil, apperror.BadRequest("Time off entry is already %s", strings.ToLower(entry.Status))
	}
	if entry.UserID == actor.UserID && !actor.IsSystemAdmin {
		return nil, apperror.Forbidden("You cannot review your own time off")
	}

	reviewed := s.now().UTC()
	entry.Status = model.TimeOffRejected
	if approve {
		entry.Status = model.TimeOffApproved
	}
	entry.ReviewedByUserID = &actor.UserID
	entry.ReviewedAt = &reviewed
	if notes = strings.TrimSpace(notes); notes != "" {
		entry.Notes = joinNotes(entry.Notes, notes)
	}
	entry.Touch(actor.UserID)
	if err := s.repo.ReviewTimeOff(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperror.Conflict("Time off entry was reviewed by another user")
		}
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	return entry, nil
}

// WorkingDays counts Monday to Friday in the month, minus weekday holidays and
// approved leave days that are not holidays, and converts the result to hours.
func (s *CalendarService) WorkingDays(ctx context.Context, tenantID, userID uuid.UUID, year, month int, hoursPerDay float64) (*WorkingDays, error) {
	if month < 1 || month > 12 {
		return nil, apperror.BadRequest("Month must be between 1 and 12")
	}
	if year < 1 {
		return nil, apperror.BadRequest("Year is required")
	}
	if hoursPerDay <= 0 {
		hoursPerDay = defaultHoursPerDay
	}

	key := fmt.Sprintf("%s%s:%d:%d:%g", workingDaysPrefix(tenantID), userID, year, month, hoursPerDay)
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	holidays, err := s.repo.Holidays(ctx, tenantID, first, last)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.TimeOff(ctx, tenantID, &userID, model.TimeOffApproved, first, last)
	if err != nil {
		return nil, err
	}

	result := CountWorkingDays(first, last, holidays, entries)
	result.UserID = userID
	result.Year = year
	result.Month = month
	result.HoursPerDay = hoursPerDay
	result.AvailableHours = float64(result.WorkingDays) * hoursPerDay

	s.store(ctx, key, result)
	return result, nil
}

// CountWorkingDays applies the working day rules to [first, last]. Holidays the
// tenant does not observe count as ordinary business days.
func CountWorkingDays(first, last time.Time, holidays []model.CompanyHoliday, entries []model.TimeOffEntry) *WorkingDays {
	holidaySet := make(map[time.Time]bool, len(holidays))
	for _, h := range holidays {
		if !h.IsObserved {
			continue
		}
		holidaySet[dateOnly(h.HolidayDate)] = true
	}

	result := &WorkingDays{}
	for day := dateOnly(first); !day.After(dateOnly(last)); day = day.AddDate(0, 0, 1) {
		if isWeekend(day) {
			continue
		}
		result.BusinessDays++
		if holidaySet[day] {
			result.Holidays++
		}
	}

	pto := make(map[time.Time]bool)
	for _, e := range entries {
		start, end := dateOnly(e.StartDate), dateOnly(e.EndDate)
		if start.Before(first) {
			start = dateOnly(first)
		}
		if end.After(last) {
			end = dateOnly(last)
		}
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if !isWeekend(day) && !holidaySet[day] {
				pto[day] = true
			}
		}
	}
	result.PtoDays = len(pto)

	result.WorkingDays = result.BusinessDays - result.Holidays - result.PtoDays
	if result.WorkingDays < 0 {
		result.WorkingDays = 0
	}
	return result
}

func isWeekend(day time.Time) bool {
	return day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
}

func workingDaysPrefix(tenantID uuid.UUID) string {
	return "working-days:" + tenantID.String() + ":"
}

// cache failures only cost a recomputation
func (s *CalendarService) cached(ctx context.Context, key string) (*WorkingDays, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("Working days cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result WorkingDays
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (s *CalendarService) store(ctx context.Context, key string, result *WorkingDays) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		logger.FromContext(ctx).Warn("Working days cache write failed", zap.Error(err))
	}
}

func (s *CalendarService) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, workingDaysPrefix(tenantID)); err != nil {
		logger.FromContext(ctx).Warn("Working days cache invalidation failed",
			zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}
