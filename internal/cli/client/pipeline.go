package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type startPayload struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	StartedAt string `json:"started_at"`
}

type tickPayload struct {
	Phase      string `json:"phase"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	Done       bool   `json:"done"`
	Retry      bool   `json:"retry"`
	RetryAfter int    `json:"retry_after_seconds"`
}

type statusPayload struct {
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Indexed   int    `json:"indexed"`
	Created   int    `json:"links_created"`
	Filtered  int    `json:"links_filtered"`
	Skipped   int    `json:"skipped"`
	Pending   int    `json:"pending_candidates"`
	Warnings  int    `json:"warnings"`
	StartedAt string `json:"started_at"`
}

// StartCmd starts a new pipeline run on the daemon.
func StartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new pipeline run",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Post("/v1/pipeline/start", nil)
			if err != nil {
				return err
			}

			var payload startPayload
			if err := json.Unmarshal(resp.Data, &payload); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("started run %s (phase %s)\n", payload.RunID, payload.Phase)
			return nil
		},
	}
}

// TickCmd advances the active run. With --watch it keeps ticking until the
// run completes, honoring rate-limit backoff hints.
func TickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the active pipeline run by one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			watch, _ := cmd.Flags().GetBool("watch")
			interval, _ := cmd.Flags().GetDuration("interval")

			for {
				resp, err := apiClient.Post("/v1/pipeline/tick", nil)
				if err != nil {
					return err
				}

				var payload tickPayload
				if err := json.Unmarshal(resp.Data, &payload); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}

				if payload.Done {
					fmt.Printf("run complete: processed %d of %d\n", payload.Processed, payload.Total)
					return nil
				}
				if payload.Retry {
					fmt.Printf("rate limited, retry after %ds\n", payload.RetryAfter)
					if !watch {
						return nil
					}
					time.Sleep(time.Duration(payload.RetryAfter) * time.Second)
					continue
				}

				fmt.Printf("phase %s: %d/%d\n", payload.Phase, payload.Processed, payload.Total)
				if !watch {
					return nil
				}
				time.Sleep(interval)
			}
		},
	}

	cmd.Flags().Bool("watch", false, "Keep ticking until the run completes")
	cmd.Flags().Duration("interval", time.Second, "Pause between ticks in watch mode")

	return cmd
}

// StatusCmd reports the active run.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active pipeline run",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.Get("/v1/pipeline/status")
			if err != nil {
				if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == 404 {
					fmt.Println("no pipeline run in progress")
					return nil
				}
				return err
			}

			var payload statusPayload
			if err := json.Unmarshal(resp.Data, &payload); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("run:       %s\n", payload.RunID)
			fmt.Printf("phase:     %s\n", payload.Phase)
			fmt.Printf("progress:  %d/%d\n", payload.Processed, payload.Total)
			fmt.Printf("indexed:   %d\n", payload.Indexed)
			fmt.Printf("created:   %d\n", payload.Created)
			fmt.Printf("filtered:  %d\n", payload.Filtered)
			fmt.Printf("skipped:   %d\n", payload.Skipped)
			if payload.Pending > 0 {
				fmt.Printf("pending:   %d\n", payload.Pending)
			}
			if payload.Warnings > 0 {
				fmt.Printf("warnings:  %d\n", payload.Warnings)
			}
			return nil
		},
	}
}

// CancelCmd cancels the active run.
func CancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active pipeline run",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := apiClient.Delete("/v1/pipeline/"); err != nil {
				return err
			}

			fmt.Println("run cancelled")
			return nil
		},
	}
}
