package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"gatekeep/internal/cli/client"
	"gatekeep/internal/common"
)

// NewRunsCommand creates the runs command
func NewRunsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recent verification runs",
		Run:   runRuns,
	}
}

func runRuns(cmd *cobra.Command, args []string) {
	resp, err := client.SendRequest(http.MethodGet, "/runs", nil)
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

	var listResp common.Response
	if err := json.Unmarshal(body, &listResp); err != nil {
		fmt.Printf("Error: Failed to parse response - %v\n", err)
		return
	}
	if listResp.Code != 0 {
		fmt.Printf("List runs failed: %s\n", listResp.Message)
		return
	}

	formatted, err := json.MarshalIndent(listResp.Data, "", "  ")
	if err != nil {
		fmt.Printf("Error: Failed to format output - %v\n", err)
		return
	}
	fmt.Println(string(formatted))
}
