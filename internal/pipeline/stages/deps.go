// Package stages implements the C8 stage handlers: the idempotent functions
// the pipeline engine (internal/pipeline) dispatches by stage key. Each
// handler reads the item's current state, no-ops if that state already
// reflects the stage's completion, does its work, and returns the next
// stage key.
package stages

import (
	"context"
	"math/rand"

	"github.com/artisanclarinets/smartupload/internal/config"
	"github.com/artisanclarinets/smartupload/internal/llm"
	"github.com/artisanclarinets/smartupload/internal/store"
)

// TextExtractor is the black-box text-extraction library contract (spec.md
// §1: PDF rendering/splitting primitives are an out-of-scope external
// collaborator referenced only by interface).
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfBytes []byte) (string, error)
}

// SplitRange is one page range to carve out of the source PDF.
type SplitRange struct {
	Instrument string
	PartName   string
	PageRange  [2]int
}

// SplitOutput is one carved-out part produced by the splitter.
type SplitOutput struct {
	PartName  string
	PageRange [2]int
	PageCount int
	Data      []byte
}

// Splitter is the black-box PDF-splitting library contract.
type Splitter interface {
	Split(ctx context.Context, pdfBytes []byte, ranges []SplitRange) ([]SplitOutput, error)
}

// PageRenderer is the black-box PDF page-rasterization library contract
// (spec.md §1: PDF rendering primitives are a documented-contract external
// collaborator). Page numbers are one-indexed, matching the wire convention
// cutting instructions use before internal/cutting normalizes them.
type PageRenderer interface {
	RenderPages(ctx context.Context, pdfBytes []byte, pageNumbers []int) (images [][]byte, mimeType string, err error)
	PageCount(ctx context.Context, pdfBytes []byte) (int, error)
}

// Handlers bundles every collaborator the C8 stage functions need. It is
// constructed once per worker process and its methods registered against
// the pipeline engine.
type Handlers struct {
	Batches    store.BatchStore
	Blobs      store.BlobStore
	Dispatcher *llm.Dispatcher
	Config     *config.RuntimeConfig
	Extractor  TextExtractor
	Splitter   Splitter
	Renderer   PageRenderer
	Rand       *rand.Rand
}

func (h *Handlers) rng() *rand.Rand {
	if h.Rand != nil {
		return h.Rand
	}
	return rand.New(rand.NewSource(1))
}
