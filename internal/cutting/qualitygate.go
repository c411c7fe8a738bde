package cutting

import (
	"fmt"

	"github.com/artisanclarinets/smartupload/internal/models"
)

// DefaultMaxPagesPerPart is the default cap on a single part's page count.
const DefaultMaxPagesPerPart = 12

// minCoverageRatio is the fraction of totalPages that parsed-part ranges
// must cover for a multi-part item to pass the coverage gate.
const minCoverageRatio = 0.95

// minSegmentationConfidence is the floor segmentationConfidence must clear.
const minSegmentationConfidence = 60.0

// GateInput is the full set of facts the quality gate evaluates.
type GateInput struct {
	ParsedParts            []models.ParsedPart
	Metadata               *models.ExtractedMetadata
	TotalPages             int
	MaxPagesPerPart        int
	SegmentationConfidence *float64
}

// GateResult is the outcome of EvaluateQualityGates.
type GateResult struct {
	Failed          bool
	Reasons         []string
	FinalConfidence float64
}

// EvaluateQualityGates runs the C6 deterministic pass/fail checks and
// computes finalConfidence. All gates must pass for Failed to be false.
func EvaluateQualityGates(in GateInput) GateResult {
	var reasons []string

	maxPages := in.MaxPagesPerPart
	if maxPages <= 0 {
		maxPages = DefaultMaxPagesPerPart
	}

	if len(in.ParsedParts) == 0 {
		reasons = append(reasons, "no parsed parts")
	}

	forbidden := normalizedForbiddenSet(Options{})
	for _, p := range in.ParsedParts {
		pageCount := p.PageRange[1] - p.PageRange[0] + 1
		if pageCount > maxPages {
			reasons = append(reasons, fmt.Sprintf("part %q has %d pages, exceeds max %d", p.PartName, pageCount, maxPages))
		}
		if isForbidden(forbidden, p.PartName) {
			reasons = append(reasons, fmt.Sprintf("part %q has forbidden label", p.PartName))
		}
	}

	if in.Metadata != nil && in.Metadata.IsMultiPart && in.TotalPages > 0 {
		coverage := float64(unionCoveredPages(in.ParsedParts, in.TotalPages)) / float64(in.TotalPages)
		if coverage < minCoverageRatio {
			reasons = append(reasons, fmt.Sprintf("coverage %.1f%% below required %.0f%%", coverage*100, minCoverageRatio*100))
		}
	}

	if in.SegmentationConfidence != nil && *in.SegmentationConfidence < minSegmentationConfidence {
		reasons = append(reasons, fmt.Sprintf("segmentation confidence %.1f below floor %.0f", *in.SegmentationConfidence, minSegmentationConfidence))
	}

	failed := len(reasons) > 0

	finalConfidence := 0.0
	if in.Metadata != nil {
		finalConfidence = in.Metadata.ConfidenceScore
		if in.SegmentationConfidence != nil && *in.SegmentationConfidence < finalConfidence {
			finalConfidence = *in.SegmentationConfidence
		}
	}
	if failed {
		finalConfidence = 0
	}

	return GateResult{Failed: failed, Reasons: reasons, FinalConfidence: finalConfidence}
}

// unionCoveredPages counts pages covered by the union of part ranges,
// matching findGaps' per-page marking so overlapping parts aren't
// double-counted.
func unionCoveredPages(parts []models.ParsedPart, totalPages int) int {
	covered := make([]bool, totalPages)
	for _, p := range parts {
		for page := p.PageRange[0]; page <= p.PageRange[1] && page < totalPages; page++ {
			if page >= 0 {
				covered[page] = true
			}
		}
	}
	count := 0
	for _, c := range covered {
		if c {
			count++
		}
	}
	return count
}
