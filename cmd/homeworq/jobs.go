package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var apiBaseURL string

// jobsCmd groups job-inspection subcommands against a running `homeworq
// serve` instance, grounded on cron_cmd.go's subcommand shape (list,
// delete) and the pkg/protocol-style JSON request/response echo,
// generalized from the teacher's gateway RPC envelope to plain HTTP/JSON
// against this project's own control-plane API.
func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage jobs on a running instance",
	}
	cmd.PersistentFlags().StringVar(&apiBaseURL, "api", "http://127.0.0.1:8080", "base URL of a running homeworq instance")
	cmd.AddCommand(jobsListCmd())
	cmd.AddCommand(jobsRunCmd())
	cmd.AddCommand(jobsDeleteCmd())
	return cmd
}

func jobsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobs []map[string]any
			if err := apiGet(apiBaseURL+"/api/jobs", &jobs); err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(jobs)
			}
			printJobsTable(jobs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func jobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task once, ad-hoc, bypassing the scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := apiPost(apiBaseURL+"/api/tasks/"+args[0]+"/run", nil, &result); err != nil {
				return err
			}
			return json.NewEncoder(os.Stdout).Encode(result)
		},
	}
}

func jobsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [jobId]",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodDelete, apiBaseURL+"/api/jobs/"+args[0], nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("delete failed: %s", resp.Status)
			}
			fmt.Printf("Deleted job %s\n", args[0])
			return nil
		},
	}
}

func printJobsTable(jobs []map[string]any) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK\tNEXT RUN\tLAST RUN")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\n", j["id"], j["task"], j["next_run"], j["last_run"])
	}
	tw.Flush()
}
