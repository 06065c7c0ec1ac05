package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
)

func newTestTransformer(responder Responder) *TransformationService {
	return NewTransformationService(responder, "gpt-5", "high", zap.NewNop())
}

func TestTransformChainsStages(t *testing.T) {
	responder := &fakeResponder{responses: []*domain.Response{
		imageResponse("resp_1", "b25l"),
		imageResponse("resp_2", "dHdv"),
		imageResponse("resp_3", "dGhyZWU="),
	}}

	results, err := newTestTransformer(responder).Transform(context.Background(), pngBytes, "Golden Retriever")
	require.NoError(t, err)
	require.Len(t, responder.requests, 3)

	first := responder.requests[0]
	assert.True(t, first.Previous.IsZero())
	assert.True(t, strings.HasPrefix(first.ImageDataURI, "data:image/png;base64,"))
	assert.Equal(t, domain.ActionAuto, first.Tool.Action)
	assert.Equal(t, "high", first.Tool.InputFidelity)
	assert.Equal(t, "gpt-5", first.Model)
	assert.Contains(t, first.Prompt, "very subtle Golden Retriever dog-like features")

	second := responder.requests[1]
	assert.Equal(t, "resp_1", second.Previous.String())
	assert.Empty(t, second.ImageDataURI)
	assert.Equal(t, domain.ActionEdit, second.Tool.Action)
	assert.Contains(t, second.Prompt, "halfway between human and Golden Retriever dog")

	third := responder.requests[2]
	assert.Equal(t, "resp_2", third.Previous.String())
	assert.Empty(t, third.ImageDataURI)
	assert.Equal(t, domain.ActionEdit, third.Tool.Action)
	assert.Contains(t, third.Prompt, "fully formed Golden Retriever dog")

	assert.Equal(t, [3]domain.StepResult{
		{Stage: domain.StageSubtle, Token: domain.NewContinuationToken("resp_1"), Payload: "b25l"},
		{Stage: domain.StageHalfway, Token: domain.NewContinuationToken("resp_2"), Payload: "dHdv"},
		{Stage: domain.StageFinal, Token: domain.NewContinuationToken("resp_3"), Payload: "dGhyZWU="},
	}, results)
}

func TestTransformStopsAfterFailedStage(t *testing.T) {
	noImage := &domain.Response{ID: "resp_x", Output: []domain.OutputItem{domain.MessageOutput{Text: "I can't do that"}}}
	emptyResult := &domain.Response{ID: "resp_y", Output: []domain.OutputItem{domain.ImageGenerationCall{ID: "ig", Status: "failed"}}}

	tests := []struct {
		name      string
		responder *fakeResponder
		stage     domain.Stage
		calls     int
	}{
		{
			name:      "stage 1 without image item",
			responder: &fakeResponder{responses: []*domain.Response{noImage}},
			stage:     domain.StageSubtle,
			calls:     1,
		},
		{
			name:      "stage 1 transport error",
			responder: &fakeResponder{errs: []error{errors.New("connection reset")}},
			stage:     domain.StageSubtle,
			calls:     1,
		},
		{
			name:      "stage 2 image call without result",
			responder: &fakeResponder{responses: []*domain.Response{imageResponse("resp_1", "b25l"), emptyResult}},
			stage:     domain.StageHalfway,
			calls:     2,
		},
		{
			name:      "stage 3 transport error",
			responder: &fakeResponder{responses: []*domain.Response{imageResponse("resp_1", "b25l"), imageResponse("resp_2", "dHdv")}, errs: []error{nil, nil, errors.New("401")}},
			stage:     domain.StageFinal,
			calls:     3,
		},
		{
			name:      "stage 1 response without id cannot be chained",
			responder: &fakeResponder{responses: []*domain.Response{imageResponse("", "b25l")}},
			stage:     domain.StageSubtle,
			calls:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTransformer(tt.responder).Transform(context.Background(), pngBytes, "Pug")

			var genErr *domain.GenerationFailure
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.stage, genErr.Stage)
			assert.Len(t, tt.responder.requests, tt.calls)
		})
	}
}

func TestTransformEmptyBreedUsesFallback(t *testing.T) {
	responder := &fakeResponder{responses: []*domain.Response{
		imageResponse("resp_1", "b25l"),
		imageResponse("resp_2", "dHdv"),
		imageResponse("resp_3", "dGhyZWU="),
	}}

	_, err := newTestTransformer(responder).Transform(context.Background(), pngBytes, "")
	require.NoError(t, err)
	assert.Contains(t, responder.requests[0].Prompt, "very subtle dog dog-like features")
}

func TestTransformRejectsEmptyImage(t *testing.T) {
	responder := &fakeResponder{}
	_, err := newTestTransformer(responder).Transform(context.Background(), nil, "Pug")

	var genErr *domain.GenerationFailure
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, domain.StageSubtle, genErr.Stage)
	assert.Empty(t, responder.requests)
}

func TestFirstImageSkipsEmptyResults(t *testing.T) {
	payload, ok := firstImage([]domain.OutputItem{
		domain.ImageGenerationCall{ID: "a"},
		domain.UnknownOutput{Type: "web_search_call"},
		domain.ImageGenerationCall{ID: "b", Result: "Zm9v"},
		domain.ImageGenerationCall{ID: "c", Result: "YmFy"},
	})
	require.True(t, ok)
	assert.Equal(t, "Zm9v", payload)

	_, ok = firstImage(nil)
	assert.False(t, ok)
}
