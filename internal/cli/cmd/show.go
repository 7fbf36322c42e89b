package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"gatekeep/internal/cli/client"
	"gatekeep/internal/common"
)

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a run's per-job breakdown",
		Run:   runShow,
	}

	cmd.Flags().StringP("run", "r", "", "Run UUID to show (required)")
	cmd.MarkFlagRequired("run")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) {
	runUUID, err := cmd.Flags().GetString("run")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	resp, err := client.SendRequest(http.MethodGet, fmt.Sprintf("/runs/%s", runUUID), nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := client.ReadResponseBody(resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	var showResp common.Response
	if err := json.Unmarshal(body, &showResp); err != nil {
		fmt.Printf("Error: Failed to parse response - %v\n", err)
		return
	}
	if showResp.Code != 0 {
		fmt.Printf("Show run failed: %s\n", showResp.Message)
		return
	}

	formatted, err := json.MarshalIndent(showResp.Data, "", "  ")
	if err != nil {
		fmt.Printf("Error: Failed to format output - %v\n", err)
		return
	}
	fmt.Println(string(formatted))
}
