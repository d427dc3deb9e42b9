package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type linkPayload struct {
	ID         string  `json:"id"`
	SourceID   int64   `json:"source_id"`
	AnchorText string  `json:"anchor_text"`
	TargetURL  string  `json:"target_url"`
	Score      float64 `json:"score"`
	Status     string  `json:"status"`
}

type linkListPayload struct {
	Links   []linkPayload `json:"links"`
	Cursor  string        `json:"cursor"`
	HasMore bool          `json:"has_more"`
}

// LinksCmd lists stored link proposals.
func LinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List link proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				query.Set("status", status)
			}
			if sourceID, _ := cmd.Flags().GetInt64("source"); sourceID > 0 {
				query.Set("source_id", strconv.FormatInt(sourceID, 10))
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if cursor, _ := cmd.Flags().GetString("cursor"); cursor != "" {
				query.Set("cursor", cursor)
			}

			path := "/v1/links/"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			resp, err := apiClient.Get(path)
			if err != nil {
				return err
			}

			var payload linkListPayload
			if err := json.Unmarshal(resp.Data, &payload); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(payload.Links) == 0 {
				fmt.Println("no links found")
				return nil
			}

			for _, link := range payload.Links {
				fmt.Printf("%s  [%s]  doc %d  %q -> %s  (%.2f)\n",
					link.ID, link.Status, link.SourceID, link.AnchorText, link.TargetURL, link.Score)
			}
			if payload.HasMore {
				fmt.Printf("more results: --cursor %s\n", payload.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().String("status", "", "Filter by status (active, rejected, filtered)")
	cmd.Flags().Int64("source", 0, "Filter by source document id")
	cmd.Flags().Int("limit", 50, "Maximum number of links to list")
	cmd.Flags().String("cursor", "", "Resume listing from a previous page's cursor")

	return cmd
}

// RejectCmd rejects a link, blacklisting its target URL for the source.
func RejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <link-id>",
		Short: "Reject a link and blacklist its target URL for the source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := apiClient.Post("/v1/links/"+args[0]+"/reject", nil); err != nil {
				return err
			}

			fmt.Println("link rejected")
			return nil
		},
	}
}

// RestoreCmd lifts a rejection.
func RestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [link-id]",
		Short: "Restore a rejected link or clear a blacklist entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]any{}
			if len(args) == 1 {
				body["link_id"] = args[0]
			} else {
				sourceID, _ := cmd.Flags().GetInt64("source")
				targetURL, _ := cmd.Flags().GetString("url")
				if sourceID <= 0 || targetURL == "" {
					return fmt.Errorf("either a link id or --source and --url are required")
				}
				body["source_id"] = sourceID
				body["target_url"] = targetURL
			}

			if _, err := apiClient.Post("/v1/blacklist/restore", body); err != nil {
				return err
			}

			fmt.Println("restored")
			return nil
		},
	}

	cmd.Flags().Int64("source", 0, "Source document id of the blacklist entry")
	cmd.Flags().String("url", "", "Target URL of the blacklist entry")

	return cmd
}
