package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "booking-a-desk", slugify("Booking a Desk"))
	assert.Equal(t, "faq-2025", slugify("  FAQ: 2025! "))
	assert.Equal(t, "", slugify("***"))
}

func TestAdvanceResume(t *testing.T) {
	reviewer := uuid.New()
	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	p := &model.ResumeProfile{Status: model.ResumeDraft}
	require.NoError(t, advanceResume(p, model.ResumeDraft, model.ResumePendingReview, reviewer, at))
	assert.Equal(t, model.ResumePendingReview, p.Status)
	assert.Nil(t, p.LastReviewedAt)

	require.NoError(t, advanceResume(p, model.ResumePendingReview, model.ResumeApproved, reviewer, at))
	assert.Equal(t, model.ResumeApproved, p.Status)
	require.NotNil(t, p.LastReviewedAt)
	assert.Equal(t, at, *p.LastReviewedAt)
	assert.Equal(t, reviewer, *p.ReviewedByUserID)

	err := advanceResume(p, model.ResumePendingReview, model.ResumeApproved, reviewer, at)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Resume must be in PendingReview status", appErr.Message)
}

func TestFacilitySheets(t *testing.T) {
	hq := model.Office{Base: model.Base{ID: uuid.New()}, Name: "HQ", City: "Bangkok", Timezone: "Asia/Bangkok", IsActive: true}
	spaces := []model.Space{
		{OfficeID: hq.ID, Name: "Desk 1", Type: "Desk", Capacity: 1, IsActive: true},
		{OfficeID: uuid.New(), Name: "Orphan", Type: "Room", Capacity: 4},
	}

	sheets := facilitySheets([]model.Office{hq}, spaces)
	require.Len(t, sheets, 2)
	assert.Equal(t, "Offices", sheets[0].Name)
	assert.Equal(t, [][]string{{"HQ", "", "Bangkok", "Asia/Bangkok", "true"}}, sheets[0].Rows)
	assert.Equal(t, [][]string{{"HQ", "Desk 1", "Desk", "1", "true"}}, sheets[1].Rows)
}

func TestHealth(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	c, rec := newRequest(http.MethodGet, "/health", nil)
	require.NoError(t, NewHealthHandler("opshub-service", map[string]Pinger{"database": ok}).Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newRequest(http.MethodGet, "/health", nil)
	require.NoError(t, NewHealthHandler("opshub-service", map[string]Pinger{"database": ok, "redis": down}).Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "ok", body.Dependencies["database"])
	assert.Equal(t, "unavailable", body.Dependencies["redis"])
}
