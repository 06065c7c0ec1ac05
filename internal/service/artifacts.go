package service

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
)

// ArtifactWriter saves generated images to disk
type ArtifactWriter struct {
	logger *zap.Logger
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(logger *zap.Logger) *ArtifactWriter {
	return &ArtifactWriter{logger: logger}
}

// Persist decodes each stage payload and writes it under outputDir using the
// stage file name. Files written before a failure are left in place.
func (w *ArtifactWriter) Persist(results [3]domain.StepResult, outputDir string) (domain.Manifest, error) {
	var manifest domain.Manifest

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return manifest, &domain.PersistenceError{Path: outputDir, Err: err}
	}

	for i, result := range results {
		stage := domain.Stages[i]
		path := filepath.Join(outputDir, stage.FileName())

		data, err := base64.StdEncoding.DecodeString(result.Payload)
		if err != nil {
			return manifest, &domain.PersistenceError{Stage: stage, Path: path, Err: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return manifest, &domain.PersistenceError{Stage: stage, Path: path, Err: err}
		}

		manifest[i] = domain.ManifestEntry{Stage: stage, Path: path, Payload: result.Payload}
		w.logger.Info("saved image", zap.Int("stage", int(stage)), zap.String("path", path))
	}

	return manifest, nil
}
