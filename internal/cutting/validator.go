// Package cutting implements the cutting-instruction validator (C5) and the
// quality-gate evaluator (C6): the deterministic, LLM-independent logic that
// turns a raw page-range plan into a normalized, gap-filled set of
// instructions and decides whether the result is trustworthy enough for
// autonomous ingest.
package cutting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artisanclarinets/smartupload/internal/models"
)

// DefaultForbiddenLabels is the built-in forbidden-label set; callers may
// override it via Options.ForbiddenLabels since the set is domain-specific.
var DefaultForbiddenLabels = []string{
	"Unknown", "N/A", "Untitled", "Score", "Music", "Page", "Blank", "Cover", "Title", "Index", "",
}

// Options controls validator behavior.
type Options struct {
	OneIndexed     bool
	DetectGaps     bool
	ForbiddenLabels []string
	DropForbidden  bool // true: drop forbidden-label instructions; false: flag only
}

// Result is the outcome of ValidateAndNormalize.
type Result struct {
	Instructions []models.CuttingInstruction
	Gaps         [][2]int // zero-indexed, inclusive, in total-pages space
	Issues       []string
}

func normalizedForbiddenSet(opts Options) map[string]struct{} {
	labels := opts.ForbiddenLabels
	if labels == nil {
		labels = DefaultForbiddenLabels
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return set
}

func isForbidden(set map[string]struct{}, partName string) bool {
	_, ok := set[strings.ToLower(strings.TrimSpace(partName))]
	return ok
}

// ValidateAndNormalize runs the full C5 pipeline: indexing normalization,
// range clamping, forbidden-label filtering, sort, gap detection. It is
// idempotent: ValidateAndNormalize(ValidateAndNormalize(x)) == ValidateAndNormalize(x).
func ValidateAndNormalize(instructions []models.CuttingInstruction, totalPages int, opts Options) Result {
	var issues []string
	forbidden := normalizedForbiddenSet(opts)

	normalized := make([]models.CuttingInstruction, 0, len(instructions))
	for _, ins := range instructions {
		start, end := ins.PageRange[0], ins.PageRange[1]
		if opts.OneIndexed {
			start--
			end--
		}

		if start > end {
			issues = append(issues, fmt.Sprintf("dropped %q: start %d > end %d", ins.PartName, start, end))
			continue
		}
		if end < 0 || start >= totalPages {
			issues = append(issues, fmt.Sprintf("dropped %q: range [%d,%d] outside [0,%d)", ins.PartName, start, end, totalPages))
			continue
		}
		if start < 0 {
			start = 0
		}
		if end >= totalPages {
			end = totalPages - 1
		}

		if isForbidden(forbidden, ins.PartName) {
			issues = append(issues, fmt.Sprintf("forbidden label %q at [%d,%d]", ins.PartName, start, end))
			if opts.DropForbidden {
				continue
			}
		}

		ins.PageRange = [2]int{start, end}
		normalized = append(normalized, ins)
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		if normalized[i].PageRange[0] != normalized[j].PageRange[0] {
			return normalized[i].PageRange[0] < normalized[j].PageRange[0]
		}
		return normalized[i].PageRange[1] < normalized[j].PageRange[1]
	})

	// Overlap detection: adjacent ranges touching (prev.end+1 == cur.start)
	// are permitted; true overlaps are reported, not merged.
	for i := 1; i < len(normalized); i++ {
		prev, cur := normalized[i-1], normalized[i]
		if cur.PageRange[0] <= prev.PageRange[1] {
			issues = append(issues, fmt.Sprintf("overlap: %q [%d,%d] and %q [%d,%d]",
				prev.PartName, prev.PageRange[0], prev.PageRange[1],
				cur.PartName, cur.PageRange[0], cur.PageRange[1]))
		}
	}

	var gaps [][2]int
	if opts.DetectGaps {
		gaps = findGaps(normalized, totalPages)
		for _, g := range gaps {
			normalized = append(normalized, models.CuttingInstruction{
				PartName:  fmt.Sprintf("Uncovered pages %d-%d", g[0]+1, g[1]+1),
				PageRange: g,
			})
		}
		sort.SliceStable(normalized, func(i, j int) bool {
			if normalized[i].PageRange[0] != normalized[j].PageRange[0] {
				return normalized[i].PageRange[0] < normalized[j].PageRange[0]
			}
			return normalized[i].PageRange[1] < normalized[j].PageRange[1]
		})
	}

	return Result{Instructions: normalized, Gaps: gaps, Issues: issues}
}

// findGaps computes [0,totalPages) minus the union of instruction ranges, as
// maximal contiguous intervals.
func findGaps(instructions []models.CuttingInstruction, totalPages int) [][2]int {
	covered := make([]bool, totalPages)
	for _, ins := range instructions {
		for p := ins.PageRange[0]; p <= ins.PageRange[1] && p < totalPages; p++ {
			if p >= 0 {
				covered[p] = true
			}
		}
	}

	var gaps [][2]int
	start := -1
	for p := 0; p < totalPages; p++ {
		if !covered[p] {
			if start == -1 {
				start = p
			}
		} else if start != -1 {
			gaps = append(gaps, [2]int{start, p - 1})
			start = -1
		}
	}
	if start != -1 {
		gaps = append(gaps, [2]int{start, totalPages - 1})
	}
	return gaps
}

// MaxGapLength returns the length (in pages) of the largest gap, or 0 if
// there are none.
func MaxGapLength(gaps [][2]int) int {
	max := 0
	for _, g := range gaps {
		l := g[1] - g[0] + 1
		if l > max {
			max = l
		}
	}
	return max
}

// SynthesizeFullScore builds a single "Full Score" instruction covering the
// whole document, used when no cutting instructions were produced but the
// metadata indicates a short, single-part score (spec.md §8 boundary case).
func SynthesizeFullScore(totalPages int) models.CuttingInstruction {
	return models.CuttingInstruction{
		PartName:  "Full Score",
		PageRange: [2]int{0, totalPages - 1},
	}
}
