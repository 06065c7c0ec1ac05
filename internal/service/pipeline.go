package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/config"
	"github.com/basel-ax/shaggydog/internal/domain"
	"github.com/basel-ax/shaggydog/internal/infrastructure/openai"
)

// Result is the outcome of one full pipeline run
type Result struct {
	Description string
	Breed       domain.BreedLabel
	Manifest    domain.Manifest
}

// Pipeline chains classification, extraction, transformation and persistence
type Pipeline struct {
	classifier  *BreedClassifier
	extractor   BreedExtractor
	transformer *TransformationService
	writer      *ArtifactWriter
	logger      *zap.Logger
}

// NewPipeline wires a pipeline from its components. A nil extractor selects
// the HeuristicExtractor.
func NewPipeline(classifier *BreedClassifier, extractor BreedExtractor, transformer *TransformationService, writer *ArtifactWriter, logger *zap.Logger) *Pipeline {
	if extractor == nil {
		extractor = HeuristicExtractor{}
	}
	return &Pipeline{
		classifier:  classifier,
		extractor:   extractor,
		transformer: transformer,
		writer:      writer,
		logger:      logger,
	}
}

// NewPipelineFromConfig builds a pipeline backed by the OpenAI clients
func NewPipelineFromConfig(cfg *config.Config, logger *zap.Logger) *Pipeline {
	vision := openai.NewVisionClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ClassifierModel, cfg.RequestTimeout)
	responses := openai.NewResponsesClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.RequestTimeout,
		openai.WithRetry(cfg.RetryAttempts, 2*time.Second, 30*time.Second))

	return NewPipeline(
		NewBreedClassifier(vision, logger),
		HeuristicExtractor{},
		NewTransformationService(responses, cfg.GenerationModel, cfg.InputFidelity, logger),
		NewArtifactWriter(logger),
		logger,
	)
}

// Analyze classifies the image at imagePath and extracts its breed label
func (p *Pipeline) Analyze(ctx context.Context, imagePath string) (string, domain.BreedLabel, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read image: %w", err)
	}
	return p.analyze(ctx, image)
}

func (p *Pipeline) analyze(ctx context.Context, image []byte) (string, domain.BreedLabel, error) {
	description, err := p.classifier.Classify(ctx, image)
	if err != nil {
		return "", "", err
	}
	breed := p.extractor.Extract(description)
	p.logger.Info("breed detected", zap.String("breed", breed.String()), zap.String("description", description))
	return description, breed, nil
}

// Run performs the full transformation of the image at imagePath and writes
// the three artifacts into outputDir.
func (p *Pipeline) Run(ctx context.Context, imagePath, outputDir string) (*Result, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	description, breed, err := p.analyze(ctx, image)
	if err != nil {
		return nil, err
	}

	steps, err := p.transformer.Transform(ctx, image, breed)
	if err != nil {
		return nil, err
	}

	manifest, err := p.writer.Persist(steps, outputDir)
	if err != nil {
		return nil, err
	}

	return &Result{Description: description, Breed: breed, Manifest: manifest}, nil
}
