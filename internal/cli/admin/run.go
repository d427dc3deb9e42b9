package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/tekstlab/interlink/internal/config"
	"github.com/tekstlab/interlink/internal/domain"
)

// RunCmd returns the run command: a one-shot local pipeline driver that
// starts a run (or resumes an interrupted one) and ticks it to completion.
func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the link pipeline to completion",
		Long: `Run the link pipeline locally, without the HTTP API.

Starts a new run unless one is already in progress, in which case the
existing run is resumed from its saved cursor. Rate-limited ticks are
retried after the provider's backoff hint.`,
		RunE: runPipeline,
	}

	cmd.Flags().Duration("tick-interval", time.Second, "Pause between ticks")

	return cmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	interval, _ := cmd.Flags().GetDuration("tick-interval")

	p, err := a.orchestrator.Start(ctx)
	if errors.Is(err, domain.ErrPipelineActive) {
		p, err = a.orchestrator.Status(ctx)
		if err != nil {
			return err
		}
		log.Printf("resuming run %s in phase %s", p.RunID, p.Phase)
	} else if err != nil {
		return err
	} else {
		log.Printf("started run %s", p.RunID)
	}

	for {
		res, err := a.orchestrator.Tick(ctx)
		if err != nil {
			return fmt.Errorf("tick failed: %w", err)
		}
		if res.Done {
			log.Printf("run complete: processed %d of %d", res.Processed, res.Total)
			return nil
		}
		if res.Retry {
			log.Printf("rate limited, retrying in %s", res.RetryAfter)
			if err := sleepCtx(ctx, res.RetryAfter); err != nil {
				return err
			}
			continue
		}
		log.Printf("phase %s: %d/%d", res.Phase, res.Processed, res.Total)
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active pipeline run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.orchestrator.Status(ctx)
			if errors.Is(err, domain.ErrProgressNotFound) {
				fmt.Println("no pipeline run in progress")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Printf("run:       %s\n", p.RunID)
			fmt.Printf("phase:     %s\n", p.Phase)
			fmt.Printf("progress:  %d/%d\n", p.Processed, p.Total)
			fmt.Printf("indexed:   %d\n", p.Indexed)
			fmt.Printf("created:   %d\n", p.Created)
			fmt.Printf("filtered:  %d\n", p.Filtered)
			fmt.Printf("skipped:   %d\n", p.Skipped)
			fmt.Printf("started:   %s\n", p.StartedAt.Format(time.RFC3339))
			if p.Warnings > 0 {
				fmt.Printf("warnings:  %d\n", p.Warnings)
			}
			return nil
		},
	}
}

// CancelCmd returns the cancel command.
func CancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active pipeline run",
		Long:  "Discard the active run's progress record. Links already committed stay in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.orchestrator.Cancel(ctx); err != nil {
				return err
			}
			fmt.Println("run cancelled")
			return nil
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
