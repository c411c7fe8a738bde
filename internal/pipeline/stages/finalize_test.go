package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanclarinets/smartupload/internal/models"
	"github.com/artisanclarinets/smartupload/internal/pipeline"
)

func TestFinalize_PassesGatesAndAutoApproves(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	item := &models.Item{
		IsPacket:    false,
		ParsedParts: []models.ParsedPart{{PartName: "Full Score", PageRange: [2]int{0, 4}}},
		ExtractedMetadata: &models.ExtractedMetadata{
			ConfidenceScore: 95,
			IsMultiPart:     false,
		},
	}

	next, err := h.Finalize(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageIngest, next)
	require.NotNil(t, item.FinalConfidence)
	assert.Equal(t, 95.0, *item.FinalConfidence)
	assert.True(t, item.AutoApproved)
	assert.False(t, item.RequiresHumanReview)
}

func TestFinalize_ForbiddenLabelFailsGateAsRoutingNotError(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	item := &models.Item{
		ParsedParts: []models.ParsedPart{{PartName: "Unknown", PageRange: [2]int{0, 2}}},
		ExtractedMetadata: &models.ExtractedMetadata{
			ConfidenceScore: 95,
		},
	}

	next, err := h.Finalize(context.Background(), &models.Batch{}, item)
	require.Error(t, err)
	assert.Empty(t, next)
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.KindQualityGate, se.Kind)
	assert.True(t, item.RequiresHumanReview)
	assert.Equal(t, models.ItemNeedsReview, item.Status)
	assert.Equal(t, 0.0, *item.FinalConfidence)
}

func TestFinalize_BelowAutonomousThresholdNeedsReview(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	item := &models.Item{
		ParsedParts: []models.ParsedPart{{PartName: "Full Score", PageRange: [2]int{0, 4}}},
		ExtractedMetadata: &models.ExtractedMetadata{
			ConfidenceScore: 50,
		},
	}

	next, err := h.Finalize(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, models.ItemNeedsReview, item.Status)
	assert.False(t, item.AutoApproved)
}

func TestFinalize_AutonomousModeDisabledNeedsReviewEvenAboveThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.AutonomousMode = false
	h := &Handlers{Config: cfg}
	item := &models.Item{
		ParsedParts: []models.ParsedPart{{PartName: "Full Score", PageRange: [2]int{0, 4}}},
		ExtractedMetadata: &models.ExtractedMetadata{
			ConfidenceScore: 99,
			IsMultiPart:     false,
		},
	}

	next, err := h.Finalize(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, models.ItemNeedsReview, item.Status)
	assert.False(t, item.AutoApproved)
}

func TestFinalize_GapFillingFlagsLargeGapForReview(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	item := &models.Item{
		IsPacket: true,
		ParsedParts: []models.ParsedPart{
			{PartName: "Flute", PageRange: [2]int{0, 2}},
			{PartName: "Oboe", PageRange: [2]int{20, 22}},
		},
		CuttingInstructions: []models.CuttingInstruction{
			{PartName: "Flute", PageRange: [2]int{0, 2}},
			{PartName: "Oboe", PageRange: [2]int{20, 22}},
		},
		ExtractedMetadata: &models.ExtractedMetadata{
			ConfidenceScore: 95,
			IsMultiPart:     true,
		},
	}

	_, _ = h.Finalize(context.Background(), &models.Batch{}, item)
	assert.True(t, item.RequiresHumanReview)
}

func TestFinalize_IdempotentOnReplay(t *testing.T) {
	h := &Handlers{Config: testConfig()}
	fc := 95.0
	item := &models.Item{FinalConfidence: &fc, AutoApproved: true}
	next, err := h.Finalize(context.Background(), &models.Batch{}, item)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StageIngest, next)
}
