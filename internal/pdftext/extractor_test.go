package pdftext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractor_ExtractText_RejectsNonPDFInput(t *testing.T) {
	e := New()
	_, err := e.ExtractText(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestExtractor_PageCount_RejectsNonPDFInput(t *testing.T) {
	e := New()
	_, err := e.PageCount(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestExtractor_ExtractText_RespectsContextCancellation(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ExtractText(ctx, []byte("not a pdf"))
	assert.Error(t, err)
}
