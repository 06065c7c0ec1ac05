package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
)

// Responder issues one call to the generative endpoint
type Responder interface {
	CreateResponse(ctx context.Context, req domain.ResponseRequest) (*domain.Response, error)
}

// TransformationService runs the three chained generation stages
type TransformationService struct {
	responder     Responder
	model         string
	inputFidelity string
	logger        *zap.Logger
}

// NewTransformationService creates a new transformation service
func NewTransformationService(responder Responder, model, inputFidelity string, logger *zap.Logger) *TransformationService {
	return &TransformationService{
		responder:     responder,
		model:         model,
		inputFidelity: inputFidelity,
		logger:        logger,
	}
}

func stagePrompt(stage domain.Stage, breed domain.BreedLabel) string {
	switch stage {
	case domain.StageSubtle:
		return fmt.Sprintf("Transform this person's face to have very subtle %s dog-like features - slightly more pronounced nose, subtle changes around the eyes and mouth, but maintain the human appearance overall. Keep the same pose, expression, and lighting.", breed)
	case domain.StageHalfway:
		return fmt.Sprintf("Transform this image to be halfway between human and %s dog - blend human and canine features more prominently. The face should show clear dog characteristics while maintaining some human-like structure. Keep the same pose and composition.", breed)
	default:
		return fmt.Sprintf("Transform this into a realistic %s dog portrait that maintains the same pose, expression, and composition as the original person. The dog should have the same general facial structure and expression, but as a fully formed %s dog.", breed, breed)
	}
}

// Transform produces the subtle, halfway and final images for the source
// image. Each stage after the first is chained to the previous stage's
// response, so a failing stage aborts the run and later stages are never
// issued. Failures are returned as *domain.GenerationFailure.
func (s *TransformationService) Transform(ctx context.Context, image []byte, breed domain.BreedLabel) ([3]domain.StepResult, error) {
	var results [3]domain.StepResult
	if len(image) == 0 {
		return results, &domain.GenerationFailure{Stage: domain.StageSubtle, Err: errors.New("empty image")}
	}

	source := dataURI(image)
	var previous domain.ContinuationToken

	for i, stage := range domain.Stages {
		req := domain.ResponseRequest{
			Model:    s.model,
			Prompt:   stagePrompt(stage, breed),
			Previous: previous,
			Tool: domain.ImageGenerationTool{
				Action:        domain.ActionEdit,
				InputFidelity: s.inputFidelity,
			},
		}
		if stage == domain.StageSubtle {
			req.ImageDataURI = source
			req.Tool.Action = domain.ActionAuto
		}

		s.logger.Info("generating image",
			zap.Int("stage", int(stage)),
			zap.Stringer("step", stage),
			zap.String("breed", breed.String()),
		)
		result, err := s.runStage(ctx, stage, req)
		if err != nil {
			s.logger.Error("image generation failed", zap.Int("stage", int(stage)), zap.Error(err))
			return results, err
		}
		results[i] = result
		previous = result.Token
		s.logger.Info("image generated", zap.Int("stage", int(stage)))
	}

	return results, nil
}

func (s *TransformationService) runStage(ctx context.Context, stage domain.Stage, req domain.ResponseRequest) (domain.StepResult, error) {
	resp, err := s.responder.CreateResponse(ctx, req)
	if err != nil {
		return domain.StepResult{}, &domain.GenerationFailure{Stage: stage, Err: err}
	}
	if resp == nil {
		return domain.StepResult{}, &domain.GenerationFailure{Stage: stage, Err: errors.New("empty response")}
	}

	payload, ok := firstImage(resp.Output)
	if !ok {
		s.logger.Debug("no image_generation_call in response",
			zap.Int("stage", int(stage)),
			zap.Strings("item_types", itemTypes(resp.Output)),
		)
		return domain.StepResult{}, &domain.GenerationFailure{Stage: stage}
	}

	token := resp.Token()
	if token.IsZero() && stage != domain.StageFinal {
		return domain.StepResult{}, &domain.GenerationFailure{Stage: stage, Err: errors.New("response has no id to continue from")}
	}

	return domain.StepResult{Stage: stage, Token: token, Payload: payload}, nil
}

// firstImage returns the payload of the first image generation item that has a result
func firstImage(items []domain.OutputItem) (string, bool) {
	for _, item := range items {
		call, ok := item.(domain.ImageGenerationCall)
		if ok && call.Result != "" {
			return call.Result, true
		}
	}
	return "", false
}

func itemTypes(items []domain.OutputItem) []string {
	types := make([]string, 0, len(items))
	for _, item := range items {
		types = append(types, item.ItemType())
	}
	return types
}
