package domain

import (
	"fmt"
	"time"
)

// Stage identifies one of the three chained generation steps
type Stage int

const (
	StageSubtle Stage = iota + 1
	StageHalfway
	StageFinal
)

// Stages lists every stage in increasing dogness order
var Stages = [3]Stage{StageSubtle, StageHalfway, StageFinal}

var stageFiles = map[Stage]string{
	StageSubtle:  "image1_transition.png",
	StageHalfway: "image2_transition.png",
	StageFinal:   "image3_final_dog.png",
}

// FileName returns the artifact file name written for the stage
func (s Stage) FileName() string {
	if name, ok := stageFiles[s]; ok {
		return name
	}
	return fmt.Sprintf("image%d.png", int(s))
}

func (s Stage) String() string {
	switch s {
	case StageSubtle:
		return "subtle"
	case StageHalfway:
		return "halfway"
	case StageFinal:
		return "final"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ContinuationToken is the opaque id of a remote response. Supplying it to
// the next request makes that request condition on the prior output.
type ContinuationToken struct {
	id string
}

// NewContinuationToken wraps a remote response id
func NewContinuationToken(id string) ContinuationToken {
	return ContinuationToken{id: id}
}

// IsZero reports whether the token carries no reference
func (t ContinuationToken) IsZero() bool {
	return t.id == ""
}

func (t ContinuationToken) String() string {
	return t.id
}

// StepResult is the outcome of one generation stage
type StepResult struct {
	Stage   Stage
	Token   ContinuationToken
	Payload string // base64 encoded image
}

// ManifestEntry is one persisted artifact
type ManifestEntry struct {
	Stage   Stage
	Path    string
	Payload string
}

// Manifest holds the three artifacts of a run in stage order
type Manifest [3]ManifestEntry

// Paths returns the artifact paths in stage order
func (m Manifest) Paths() [3]string {
	var paths [3]string
	for i, entry := range m {
		paths[i] = entry.Path
	}
	return paths
}

// Transformation statuses
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusDone       = "Done"
	StatusFailed     = "Failed"
)

// Transformation represents a queued transformation job and its outcome
type Transformation struct {
	ID                int
	UserID            int
	OriginalFilename  string
	OriginalImagePath string
	Status            string
	Breed             string
	ImagePaths        [3]string
	Error             string
	CreatedAt         time.Time
}
