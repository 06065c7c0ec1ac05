package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/basel-ax/shaggydog/internal/domain"
)

// TransformationRepository defines the interface for transformation job data access
type TransformationRepository interface {
	Create(ctx context.Context, t *domain.Transformation) (int, error)
	ClaimReadyToTransform(ctx context.Context, limit int) ([]domain.Transformation, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	Complete(ctx context.Context, id int, breed domain.BreedLabel, manifest domain.Manifest) error
	Fail(ctx context.Context, id int, reason string) error
	ListByUser(ctx context.Context, userID int) ([]domain.Transformation, error)
}

// PostgresTransformationRepository implements TransformationRepository for PostgreSQL
type PostgresTransformationRepository struct {
	db *sql.DB
}

// NewPostgresTransformationRepository creates a new PostgreSQL transformation repository
func NewPostgresTransformationRepository(db *sql.DB) *PostgresTransformationRepository {
	return &PostgresTransformationRepository{db: db}
}

// Create inserts a pending transformation and returns its id
func (r *PostgresTransformationRepository) Create(ctx context.Context, t *domain.Transformation) (int, error) {
	query := `
		INSERT INTO transformations (user_id, original_filename, original_image_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`

	var id int
	err := r.db.QueryRowContext(ctx, query,
		t.UserID, t.OriginalFilename, t.OriginalImagePath, domain.StatusPending, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transformation: %w", err)
	}
	return id, nil
}

// ClaimReadyToTransform moves up to limit pending jobs to Processing and
// returns them. Rows locked by another worker are skipped.
func (r *PostgresTransformationRepository) ClaimReadyToTransform(ctx context.Context, limit int) ([]domain.Transformation, error) {
	query := `
		UPDATE transformations
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id
			FROM transformations
			WHERE status = $3
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, user_id, original_filename, original_image_path, status, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, domain.StatusProcessing, time.Now(), domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim transformations: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Transformation
	for rows.Next() {
		var t domain.Transformation
		if err := rows.Scan(&t.ID, &t.UserID, &t.OriginalFilename, &t.OriginalImagePath, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, t)
	}
	return jobs, rows.Err()
}

// UpdateStatus updates the status of a transformation
func (r *PostgresTransformationRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	query := `
		UPDATE transformations
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

// Complete stores the breed and the three artifact paths and marks the job done
func (r *PostgresTransformationRepository) Complete(ctx context.Context, id int, breed domain.BreedLabel, manifest domain.Manifest) error {
	query := `
		UPDATE transformations
		SET status = $1, dog_breed = $2, image1_path = $3, image2_path = $4, image3_path = $5, error = NULL, updated_at = $6
		WHERE id = $7
	`

	paths := manifest.Paths()
	_, err := r.db.ExecContext(ctx, query, domain.StatusDone, breed.String(), paths[0], paths[1], paths[2], time.Now(), id)
	return err
}

// Fail marks the job failed with a reason
func (r *PostgresTransformationRepository) Fail(ctx context.Context, id int, reason string) error {
	query := `
		UPDATE transformations
		SET status = $1, error = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, domain.StatusFailed, reason, time.Now(), id)
	return err
}

// ListByUser returns a user's transformations, most recent first
func (r *PostgresTransformationRepository) ListByUser(ctx context.Context, userID int) ([]domain.Transformation, error) {
	query := `
		SELECT id, user_id, original_filename, original_image_path, status,
		       dog_breed, image1_path, image2_path, image3_path, error, created_at
		FROM transformations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Transformation
	for rows.Next() {
		var (
			t                            domain.Transformation
			breed, img1, img2, img3, msg sql.NullString
		)
		err := rows.Scan(&t.ID, &t.UserID, &t.OriginalFilename, &t.OriginalImagePath, &t.Status,
			&breed, &img1, &img2, &img3, &msg, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.Breed = breed.String
		t.ImagePaths = [3]string{img1.String, img2.String, img3.String}
		t.Error = msg.String
		list = append(list, t)
	}
	return list, rows.Err()
}
