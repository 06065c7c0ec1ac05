package domain

// FallbackBreed is used whenever no breed can be read from a description.
const FallbackBreed BreedLabel = "dog"

// BreedLabel is the short breed name used to parameterise generation prompts
type BreedLabel string

// String returns the label, substituting FallbackBreed when empty
func (b BreedLabel) String() string {
	if b == "" {
		return string(FallbackBreed)
	}
	return string(b)
}
