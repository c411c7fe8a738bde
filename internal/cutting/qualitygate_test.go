package cutting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/artisanclarinets/smartupload/internal/models"
)

func ptr(f float64) *float64 { return &f }

func TestEvaluateQualityGates_NoParts(t *testing.T) {
	res := EvaluateQualityGates(GateInput{Metadata: &models.ExtractedMetadata{ConfidenceScore: 92}})
	assert.True(t, res.Failed)
	assert.Equal(t, 0.0, res.FinalConfidence)
}

func TestEvaluateQualityGates_HappyPath(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts: []models.ParsedPart{{PartName: "Piano", PageRange: [2]int{0, 3}}},
		Metadata:    &models.ExtractedMetadata{ConfidenceScore: 92, IsMultiPart: false},
		TotalPages:  4,
	})
	assert.False(t, res.Failed)
	assert.Equal(t, 92.0, res.FinalConfidence)
}

func TestEvaluateQualityGates_ExceedsMaxPagesPerPart(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts:     []models.ParsedPart{{PartName: "Flute", PageRange: [2]int{0, 20}}},
		Metadata:        &models.ExtractedMetadata{ConfidenceScore: 90},
		TotalPages:      21,
		MaxPagesPerPart: 12,
	})
	assert.True(t, res.Failed)
	assert.Equal(t, 0.0, res.FinalConfidence)
}

func TestEvaluateQualityGates_CoverageBelowThreshold(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts: []models.ParsedPart{
			{PartName: "A", PageRange: [2]int{0, 2}},
			{PartName: "B", PageRange: [2]int{6, 9}},
		},
		Metadata:   &models.ExtractedMetadata{ConfidenceScore: 90, IsMultiPart: true},
		TotalPages: 10,
	})
	assert.True(t, res.Failed)
}

func TestEvaluateQualityGates_SegmentationConfidenceFloor(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts:            []models.ParsedPart{{PartName: "Piano", PageRange: [2]int{0, 3}}},
		Metadata:               &models.ExtractedMetadata{ConfidenceScore: 92},
		TotalPages:             4,
		SegmentationConfidence: ptr(40),
	})
	assert.True(t, res.Failed)
}

func TestEvaluateQualityGates_OverlappingPartsUseUnionNotSum(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts: []models.ParsedPart{
			{PartName: "A", PageRange: [2]int{0, 5}},
			{PartName: "B", PageRange: [2]int{0, 5}},
		},
		Metadata:   &models.ExtractedMetadata{ConfidenceScore: 92, IsMultiPart: true},
		TotalPages: 10,
	})
	assert.True(t, res.Failed, "summed page counts (12/10) would pass, but the union only covers 6/10 pages")
}

func TestEvaluateQualityGates_FinalConfidenceIsMinOfBoth(t *testing.T) {
	res := EvaluateQualityGates(GateInput{
		ParsedParts:            []models.ParsedPart{{PartName: "Piano", PageRange: [2]int{0, 3}}},
		Metadata:               &models.ExtractedMetadata{ConfidenceScore: 92},
		TotalPages:             4,
		SegmentationConfidence: ptr(70),
	})
	assert.False(t, res.Failed)
	assert.Equal(t, 70.0, res.FinalConfidence)
}
