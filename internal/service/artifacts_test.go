package service

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
)

func stepResults(raw ...[]byte) [3]domain.StepResult {
	var results [3]domain.StepResult
	for i := range results {
		results[i] = domain.StepResult{
			Stage:   domain.Stages[i],
			Payload: base64.StdEncoding.EncodeToString(raw[i]),
		}
	}
	return results
}

func TestPersistCreatesDirectoryAndRoundTrips(t *testing.T) {
	raw := [][]byte{pngBytes, {0x00, 0xff, 0x10}, []byte("final dog")}
	outputDir := filepath.Join(t.TempDir(), "7", "job")

	manifest, err := NewArtifactWriter(zap.NewNop()).Persist(stepResults(raw...), outputDir)
	require.NoError(t, err)

	want := []string{"image1_transition.png", "image2_transition.png", "image3_final_dog.png"}
	for i, entry := range manifest {
		assert.Equal(t, domain.Stages[i], entry.Stage)
		assert.Equal(t, filepath.Join(outputDir, want[i]), entry.Path)
		assert.Equal(t, base64.StdEncoding.EncodeToString(raw[i]), entry.Payload)

		data, err := os.ReadFile(entry.Path)
		require.NoError(t, err)
		assert.Equal(t, raw[i], data)
	}
}

func TestPersistIsIdempotentOnExistingDirectory(t *testing.T) {
	outputDir := t.TempDir()
	writer := NewArtifactWriter(zap.NewNop())
	results := stepResults([]byte("a"), []byte("b"), []byte("c"))

	_, err := writer.Persist(results, outputDir)
	require.NoError(t, err)
	_, err = writer.Persist(results, outputDir)
	require.NoError(t, err)
}

func TestPersistBadPayloadKeepsEarlierFiles(t *testing.T) {
	outputDir := t.TempDir()
	results := stepResults([]byte("a"), []byte("b"), []byte("c"))
	results[1].Payload = "not base64!!"

	_, err := NewArtifactWriter(zap.NewNop()).Persist(results, outputDir)

	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, domain.StageHalfway, persistErr.Stage)
	assert.FileExists(t, filepath.Join(outputDir, "image1_transition.png"))
	assert.NoFileExists(t, filepath.Join(outputDir, "image2_transition.png"))
}

func TestPersistDirectoryCreateFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewArtifactWriter(zap.NewNop()).Persist(stepResults([]byte("a"), []byte("b"), []byte("c")), filepath.Join(blocker, "out"))

	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, domain.Stage(0), persistErr.Stage)
}
