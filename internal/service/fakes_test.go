package service

import (
	"context"
	"fmt"

	"github.com/basel-ax/shaggydog/internal/domain"
)

type fakeVision struct {
	text  string
	err   error
	calls int
	uri   string
}

func (f *fakeVision) Describe(ctx context.Context, instruction, imageDataURI string) (string, error) {
	f.calls++
	f.uri = imageDataURI
	return f.text, f.err
}

// fakeResponder answers stage n with responses[n-1] and records every request.
type fakeResponder struct {
	responses []*domain.Response
	errs      []error
	requests  []domain.ResponseRequest
}

func (f *fakeResponder) CreateResponse(ctx context.Context, req domain.ResponseRequest) (*domain.Response, error) {
	f.requests = append(f.requests, req)
	n := len(f.requests) - 1
	if n < len(f.errs) && f.errs[n] != nil {
		return nil, f.errs[n]
	}
	if n >= len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d", n+1)
	}
	return f.responses[n], nil
}

func imageResponse(id, payload string) *domain.Response {
	return &domain.Response{
		ID: id,
		Output: []domain.OutputItem{
			domain.UnknownOutput{Type: "reasoning"},
			domain.ImageGenerationCall{ID: "ig_" + id, Status: "completed", Result: payload},
			domain.MessageOutput{Text: "here you go"},
		},
	}
}

// pngBytes starts with the PNG signature so content sniffing reports image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
