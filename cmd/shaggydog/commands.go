package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basel-ax/shaggydog/internal/domain"
	"github.com/basel-ax/shaggydog/internal/repository"
	"github.com/basel-ax/shaggydog/internal/service"
	"github.com/basel-ax/shaggydog/internal/worker"
)

var outputDir string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Detect the dog breed a face resembles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := service.NewPipelineFromConfig(cfg, logger)
		description, breed, err := pipeline.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Dog breed analysis:\n%s\n\nExtracted breed: %s\n", description, breed)
		return nil
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform <image>",
	Short: "Generate the three-step human to dog transformation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := outputDir
		if dir == "" {
			dir = "."
		}

		pipeline := service.NewPipelineFromConfig(cfg, logger)
		result, err := pipeline.Run(cmd.Context(), args[0], dir)
		if err != nil {
			if stage := domain.StageOf(err); stage > 0 {
				return fmt.Errorf("stage %d: %w", int(stage), err)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Detected breed: %s\n", result.Breed)
		for _, entry := range result.Manifest {
			fmt.Fprintf(out, "  %d/3 %-8s %s\n", int(entry.Stage), entry.Stage, entry.Path)
		}
		return nil
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <user-id> <image>",
	Short: "Copy an upload into the user's upload folder and queue it for the worker",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		userDir := filepath.Join(cfg.UploadDir, strconv.Itoa(userID))
		if err := os.MkdirAll(userDir, 0o755); err != nil {
			return err
		}
		name := filepath.Base(args[1])
		stored := filepath.Join(userDir, time.Now().Format("20060102_150405")+"_"+name)
		if err := os.WriteFile(stored, data, 0o644); err != nil {
			return err
		}

		repo := repository.NewPostgresTransformationRepository(db)
		id, err := repo.Create(cmd.Context(), &domain.Transformation{
			UserID:            userID,
			OriginalFilename:  name,
			OriginalImagePath: stored,
		})
		if err != nil {
			return err
		}
		logger.Info("transformation queued", zap.Int("transformation_id", id), zap.String("path", stored))
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued transformations on a schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		w := worker.New(
			repository.NewPostgresTransformationRepository(db),
			service.NewPipelineFromConfig(cfg, logger),
			cfg.Worker,
			cfg.GeneratedDir,
			logger,
		)
		return w.Start(cmd.Context())
	},
}

func init() {
	transformCmd.Flags().StringVarP(&outputDir, "out", "o", "", "Directory for the generated images (default: current directory)")
}

func openDB() (*sql.DB, error) {
	if err := cfg.ValidateDB(); err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	return db, nil
}
