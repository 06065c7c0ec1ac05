package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
)

const classifyInstruction = "Analyze this human face and determine which specific dog breed this person's facial features, structure, and overall appearance most closely resembles. Consider factors like face shape, eye shape, nose structure, ear position, and overall facial proportions. Respond with just the dog breed name and a brief one-sentence explanation of why."

// VisionDescriber answers a text instruction about a single image
type VisionDescriber interface {
	Describe(ctx context.Context, instruction, imageDataURI string) (string, error)
}

// BreedClassifier asks a vision model which dog breed a face resembles
type BreedClassifier struct {
	vision VisionDescriber
	logger *zap.Logger
}

// NewBreedClassifier creates a new breed classifier
func NewBreedClassifier(vision VisionDescriber, logger *zap.Logger) *BreedClassifier {
	return &BreedClassifier{vision: vision, logger: logger}
}

// Classify returns the model's free-text breed description for the image,
// verbatim and possibly blank. Remote failures are returned as a
// *domain.ClassificationError and never retried.
func (c *BreedClassifier) Classify(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &domain.ClassificationError{Err: errors.New("empty image")}
	}

	c.logger.Debug("classifying breed", zap.Int("image_bytes", len(image)))
	text, err := c.vision.Describe(ctx, classifyInstruction, dataURI(image))
	if err != nil {
		return "", &domain.ClassificationError{Err: err}
	}
	return text, nil
}

// BreedExtractor turns a free-text breed description into a short label
type BreedExtractor interface {
	Extract(description string) domain.BreedLabel
}

// HeuristicExtractor reads the breed from the leading words of a description.
//
// This is a best-effort heuristic, not a grammar. The first two whitespace
// tokens form the label when the second starts with an uppercase letter
// ("German Shepherd") or when there are exactly two tokens; otherwise only
// the first token is used. Tokens are kept raw, so trailing punctuation
// survives ("Golden Retriever,"), lowercase multi-word breeds are cut short
// and a leading qualifier ("Probably a Beagle") wins over the breed.
type HeuristicExtractor struct{}

// Extract implements BreedExtractor
func (HeuristicExtractor) Extract(description string) domain.BreedLabel {
	words := strings.Fields(description)
	if len(words) == 0 {
		return domain.FallbackBreed
	}
	if len(words) >= 2 && (startsUpper(words[1]) || len(words) == 2) {
		return domain.BreedLabel(words[0] + " " + words[1])
	}
	return domain.BreedLabel(words[0])
}

func startsUpper(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r)
}

// dataURI encodes an image as a base64 data URI, defaulting to JPEG when the
// content type cannot be sniffed.
func dataURI(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
