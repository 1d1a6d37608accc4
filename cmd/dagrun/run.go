package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/phrazzld/dagrun/internal/api"
	"github.com/phrazzld/dagrun/internal/config"
	"github.com/phrazzld/dagrun/internal/platform/logger"
	"github.com/phrazzld/dagrun/internal/platform/postgres"
	"github.com/phrazzld/dagrun/internal/sched"
	"github.com/phrazzld/dagrun/internal/store"
	"github.com/phrazzld/dagrun/internal/taskfile"
)

func newRunCmd() *cobra.Command {
	var (
		file        string
		policyName  string
		concurrency int
		timeoutMs   int
		shell       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a taskfile in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override the loaded configuration when set explicitly.
			if !cmd.Flags().Changed("policy") {
				policyName = cfg.Runner.FailurePolicy
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Runner.MaxConcurrencyPerBatch
			}
			if !cmd.Flags().Changed("timeout-ms") {
				timeoutMs = cfg.Runner.PerTaskTimeoutMs
			}

			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return err
			}

			f, err := taskfile.Load(file)
			if err != nil {
				return err
			}

			graph, err := sched.BuildGraph(f.Descriptors())
			if err != nil {
				return err
			}
			plan := sched.PlanBatches(graph)

			coord := sched.NewCoordinator(graph, plan, taskfile.ShellExecutor(shell), sched.Config{
				MaxConcurrencyPerBatch: concurrency,
				PerTaskTimeout:         time.Duration(timeoutMs) * time.Millisecond,
				Policy:                 sched.NewPolicy(policyName, graph, plan),
			}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logger.WithContext(ctx, log)

			var runStore store.RunStore
			if cfg.Database.URL != "" {
				db, err := sql.Open("pgx", cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer func() { _ = db.Close() }()

				if err := postgres.MigrateUp(db); err != nil {
					return err
				}
				runStore = postgres.NewRunStore(db)
			}

			if cfg.Server.Port > 0 {
				shutdown, err := startProgressServer(cfg.Server.Port, coord, runStore, log)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			report, err := coord.Run(ctx)
			if err != nil {
				return err
			}

			if runStore != nil {
				if err := runStore.SaveReport(ctx, report); err != nil {
					log.Error("failed to persist run report", "error", err)
				}
			}

			renderReport(report)
			if report.Status != sched.RunStatusCompleted {
				return fmt.Errorf("run finished with status %s", report.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "dagrun.yaml", "path to the taskfile")
	cmd.Flags().StringVar(&policyName, "policy", sched.PolicyCompleteAll, "failure policy: fail-fast or complete-all")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max concurrent tasks per batch (0 = unbounded)")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "per-task timeout in milliseconds (0 = none)")
	cmd.Flags().StringVar(&shell, "shell", "/bin/sh", "shell used to run task commands")
	return cmd
}

// startProgressServer serves live progress for the run on the given port and
// returns a function that shuts the server down.
func startProgressServer(port int, coord *sched.Coordinator, runs store.RunStore, log *slog.Logger) (func(), error) {
	handler := api.NewHandler(coord, runs, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	log.Info("progress endpoint listening", "addr", ln.Addr().String(), "run_id", coord.RunID())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("progress server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// renderReport prints the final per-task outcomes and run summary.
func renderReport(report *sched.RunReport) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	ids := make([]string, 0, len(report.Tasks))
	for id := range report.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		result := report.Tasks[id]
		switch result.Status {
		case sched.TaskStatusCompleted:
			_, _ = green.Printf("  ok      %-20s %s\n", id, result.Duration.Round(time.Millisecond))
		case sched.TaskStatusFailed:
			_, _ = red.Printf("  failed  %-20s %s (%v)\n", id, result.Duration.Round(time.Millisecond), result.Err)
		case sched.TaskStatusSkipped:
			_, _ = yellow.Printf("  skipped %-20s (%v)\n", id, result.Err)
		}
	}

	_, _ = bold.Printf("\nrun %s: %s\n", report.RunID, report.Status)
	fmt.Printf("  wall clock: %s  sequential: %s  speedup: %.2fx\n",
		report.TotalDuration.Round(time.Millisecond),
		report.SequentialDuration.Round(time.Millisecond),
		report.SpeedupFactor)
}
