package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/repository"
	"github.com/noah-isme/sma-roster-api/internal/service"
	"github.com/noah-isme/sma-roster-api/pkg/database"
)

type importOptions struct {
	file      string
	subject   string
	professor string
	apply     bool
}

type importRunner interface {
	Import(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error)
	Preview(ctx context.Context, professorID, subjectCode string, file dto.ImportFile) (*dto.ImportReport, error)
}

func newImportCmd(deps *runtimeDeps) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile a roster file against a subject (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := database.NewPostgres(ctx, deps.cfg.Database)
			if err != nil {
				return withCode(exitFailure, fmt.Errorf("connect database: %w", err))
			}
			defer db.Close()

			runner := newImportRunner(deps, repository.NewStudentRepository(db), repository.NewCourseRepository(db),
				repository.NewEnrollmentRepository(db), repository.NewDashboardRepository(db))
			return runImport(ctx, runner, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Roster file: csv, tsv, txt, xlsx or xls (required)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Subject code (required)")
	cmd.Flags().StringVar(&opts.professor, "professor", "", "Owning professor id (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write enrollments and save the dashboard (default is dry-run)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("professor")

	return cmd
}

// newImportRunner wires the import pipeline without cache or debouncer; saves are immediate.
func newImportRunner(deps *runtimeDeps, students *repository.StudentRepository, courses *repository.CourseRepository,
	enrollments *repository.EnrollmentRepository, dashboards *repository.DashboardRepository) *service.ImportService {
	logr := deps.logger
	metrics := service.NewMetricsService()
	gateway := service.NewPersistenceGateway(students, courses, enrollments, dashboards, nil, metrics, logr, service.GatewayConfig{})
	projector := service.NewProjectionService(gateway, metrics, logr)
	store := service.NewStateStore(gateway, projector, logr)
	return service.NewImportService(gateway, store, projector, service.NewSyncService(nil, logr), metrics, logr, service.ImportConfig{
		EmailDomain:       deps.cfg.Import.EmailDomain,
		MaxFileSizeBytes:  deps.cfg.Import.MaxFileSizeBytes,
		AllowedExtensions: deps.cfg.Import.AllowedExtensions,
	})
}

func runImport(ctx context.Context, runner importRunner, opts importOptions, out io.Writer) error {
	opts.subject = strings.TrimSpace(opts.subject)
	opts.professor = strings.TrimSpace(opts.professor)
	if opts.subject == "" || opts.professor == "" {
		return withCode(exitUsage, fmt.Errorf("--subject and --professor are required"))
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read --file: %w", err))
	}
	file := dto.ImportFile{Name: filepath.Base(opts.file), Data: data}

	run := runner.Preview
	if opts.apply {
		run = runner.Import
	}
	report, runErr := run(ctx, opts.professor, opts.subject, file)
	if report != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return withCode(exitFailure, fmt.Errorf("write report: %w", err))
		}
	}
	if runErr != nil {
		return withCode(exitFailure, runErr)
	}
	if report != nil && report.Failed > 0 {
		return withCode(exitFailure, fmt.Errorf("%d enrollment(s) failed", report.Failed))
	}
	return nil
}
