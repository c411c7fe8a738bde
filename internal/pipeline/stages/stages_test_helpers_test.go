package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/artisanclarinets/smartupload/internal/config"
	"github.com/artisanclarinets/smartupload/internal/llm"
	"github.com/artisanclarinets/smartupload/internal/llm/ratelimit"
)

// fakeDoer serves canned HTTP responses in order, mirroring
// internal/llm's own dispatcher_test.go fake.
type fakeDoer struct {
	bodies []string
	idx    int
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	b := f.bodies[f.idx%len(f.bodies)]
	f.idx++
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewBufferString(b))}, nil
}

func openAIChatBody(jsonContent string) string {
	escaped, _ := json.Marshal(jsonContent)
	return `{"choices":[{"message":{"content":` + string(escaped) + `}}]}`
}

func testDispatcher(bodies ...string) *llm.Dispatcher {
	return llm.New(&fakeDoer{bodies: bodies}, ratelimit.New(0))
}

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Provider:                    config.ProviderOpenAI,
		EndpointURL:                 "https://api.openai.com",
		ProviderSecrets:             map[config.Provider]string{config.ProviderOpenAI: "test-key"},
		VisionModel:                 "gpt-4o",
		VerificationModel:           "gpt-4o",
		AdjudicatorModel:            "gpt-4o",
		AutoApproveThreshold:        90,
		AutonomousApprovalThreshold: 85,
		TwoPassEnabled:              true,
		AutonomousMode:              true,
		MaxPagesPerPart:             12,
	}
}

// fakeRenderer renders a fixed number of blank pages regardless of input.
type fakeRenderer struct {
	pageCount int
}

func (r *fakeRenderer) PageCount(ctx context.Context, pdfBytes []byte) (int, error) {
	return r.pageCount, nil
}

func (r *fakeRenderer) RenderPages(ctx context.Context, pdfBytes []byte, pageNumbers []int) ([][]byte, string, error) {
	images := make([][]byte, len(pageNumbers))
	for i := range images {
		images[i] = []byte("page-image")
	}
	return images, "image/png", nil
}

// fakeSplitter carves one output per requested range, filled with dummy bytes.
type fakeSplitter struct{}

func (fakeSplitter) Split(ctx context.Context, pdfBytes []byte, ranges []SplitRange) ([]SplitOutput, error) {
	out := make([]SplitOutput, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, SplitOutput{
			PartName:  r.PartName,
			PageRange: r.PageRange,
			PageCount: r.PageRange[1] - r.PageRange[0] + 1,
			Data:      []byte("pdf-bytes-" + r.PartName),
		})
	}
	return out, nil
}
