package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"gatekeep/internal/cli/client"
	"gatekeep/internal/common"
	"gatekeep/pkg/api"
)

// NewTriggerCommand creates the trigger command
func NewTriggerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a verification run for a revision",
		Run:   runTrigger,
	}

	cmd.Flags().StringP("revision", "r", "", "Source revision to verify (required)")
	cmd.Flags().StringP("ref", "b", "", "Ref the revision was pushed to (required)")
	cmd.MarkFlagRequired("revision")
	cmd.MarkFlagRequired("ref")

	return cmd
}

func runTrigger(cmd *cobra.Command, args []string) {
	revision, err := cmd.Flags().GetString("revision")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	ref, err := cmd.Flags().GetString("ref")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	req := api.TriggerRequest{
		Revision: revision,
		Ref:      ref,
	}
	jsonData, err := json.Marshal(req)
	if err != nil {
		fmt.Printf("Error: Failed to serialize data - %v\n", err)
		return
	}

	resp, err := client.SendRequest(http.MethodPost, "/trigger", bytes.NewBuffer(jsonData))
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

	var triggerResp common.Response
	if err := json.Unmarshal(body, &triggerResp); err != nil {
		fmt.Printf("Error: Failed to parse response - %v\n", err)
		return
	}
	if triggerResp.Code != 0 {
		fmt.Printf("Trigger failed: %s\n", triggerResp.Message)
		return
	}

	formatted, err := json.MarshalIndent(triggerResp.Data, "", "  ")
	if err != nil {
		fmt.Printf("Error: Failed to format output - %v\n", err)
		return
	}
	fmt.Println(string(formatted))
}
