package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basel-ax/shaggydog/internal/domain"
)

// openTestDB connects to the database named by SHAGGYDOG_TEST_DSN and applies
// schema.sql. The test is skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("SHAGGYDOG_TEST_DSN")
	if dsn == "" {
		t.Skip("SHAGGYDOG_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	_, err = db.Exec("TRUNCATE transformations RESTART IDENTITY")
	require.NoError(t, err)
	return db
}

func TestPostgresTransformationLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresTransformationRepository(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, &domain.Transformation{UserID: 7, OriginalFilename: "me.jpg", OriginalImagePath: "uploads/7/me.jpg"})
	require.NoError(t, err)

	claimed, err := repo.ClaimReadyToTransform(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Equal(t, domain.StatusProcessing, claimed[0].Status)

	again, err := repo.ClaimReadyToTransform(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	manifest := domain.Manifest{
		{Stage: domain.StageSubtle, Path: "g/7/image1_transition.png"},
		{Stage: domain.StageHalfway, Path: "g/7/image2_transition.png"},
		{Stage: domain.StageFinal, Path: "g/7/image3_final_dog.png"},
	}
	require.NoError(t, repo.Complete(ctx, id, "Golden Retriever", manifest))

	list, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusDone, list[0].Status)
	assert.Equal(t, "Golden Retriever", list[0].Breed)
	assert.Equal(t, manifest.Paths(), list[0].ImagePaths)
}

func TestPostgresTransformationFail(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresTransformationRepository(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, &domain.Transformation{UserID: 3, OriginalFilename: "a.png", OriginalImagePath: "uploads/3/a.png"})
	require.NoError(t, err)
	require.NoError(t, repo.Fail(ctx, id, "stage 2: failed to generate image 2 (halfway)"))

	list, err := repo.ListByUser(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.StatusFailed, list[0].Status)
	assert.Contains(t, list[0].Error, "stage 2")
	assert.Empty(t, list[0].Breed)
}
