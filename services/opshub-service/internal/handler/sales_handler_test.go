package handler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
)

func TestOpportunityNumber(t *testing.T) {
	assert.Equal(t, "OPP-000001", formatOpportunityNumber(1))
	assert.Equal(t, "OPP-001234", formatOpportunityNumber(1234))

	assert.Equal(t, 42, parseOpportunityNumber("OPP-000042"))
	assert.Equal(t, 0, parseOpportunityNumber("000042"))
	assert.Equal(t, 0, parseOpportunityNumber("OPP-abc"))
	assert.Equal(t, 0, parseOpportunityNumber(""))
}

func TestPipelineSummary(t *testing.T) {
	qualify := model.SalesStage{Base: model.Base{ID: uuid.New()}, Name: "Qualify", SortOrder: 1, Probability: 10}
	propose := model.SalesStage{Base: model.Base{ID: uuid.New()}, Name: "Propose", SortOrder: 2, Probability: 50}
	empty := model.SalesStage{Base: model.Base{ID: uuid.New()}, Name: "Won", SortOrder: 3, Probability: 100}

	opps := []model.SalesOpportunity{
		{StageID: propose.ID, Amount: decimal.NewFromInt(1000), Probability: 50, TotalContractValue: decimal.NewFromInt(3000)},
		{StageID: propose.ID, Amount: decimal.NewFromInt(200), Probability: 25, TotalContractValue: decimal.Zero},
		{StageID: qualify.ID, Amount: decimal.NewFromInt(400), Probability: 10, TotalContractValue: decimal.NewFromInt(400)},
		{StageID: uuid.New(), Amount: decimal.NewFromInt(9999), Probability: 90, TotalContractValue: decimal.Zero},
	}

	summary := pipelineSummary([]model.SalesStage{empty, propose, qualify}, opps)
	require.Len(t, summary, 3)

	assert.Equal(t, "Qualify", summary[0].StageName)
	assert.Equal(t, 1, summary[0].Count)
	assert.True(t, decimal.NewFromInt(40).Equal(summary[0].WeightedAmount))

	assert.Equal(t, "Propose", summary[1].StageName)
	assert.Equal(t, 2, summary[1].Count)
	assert.True(t, decimal.NewFromInt(1200).Equal(summary[1].TotalAmount))
	assert.True(t, decimal.NewFromInt(550).Equal(summary[1].WeightedAmount))
	assert.True(t, decimal.NewFromInt(3000).Equal(summary[1].TotalContractValue))

	assert.Equal(t, "Won", summary[2].StageName)
	assert.Zero(t, summary[2].Count)
	assert.True(t, summary[2].TotalAmount.IsZero())
}
