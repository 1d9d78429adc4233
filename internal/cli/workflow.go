package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func workflowRow(wf WorkflowResponse) []string {
	return []string{
		wf.ID,
		truncate(wf.Name, 40),
		strconv.Itoa(wf.Version),
		strconv.Itoa(len(wf.Nodes)),
		wf.CreatedBy,
		wf.CreatedAt,
	}
}

var workflowHeaders = []string{"ID", "NAME", "VERSION", "NODES", "CREATED BY", "CREATED"}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			rows := make([][]string, len(workflows))
			for i, wf := range workflows {
				rows[i] = workflowRow(wf)
			}

			out.Print(workflowHeaders, rows, workflows)
			return nil
		},
	}
}

// readGraphFile читает JSON-файл с описанием графа:
// {"name": ..., "description": ..., "nodes": [...], "connections": [...]}.
func readGraphFile(path string) (*CreateWorkflowRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var req CreateWorkflowRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid graph file: %w", err)
	}
	return &req, nil
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a graph file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := readGraphFile(file)
			if err != nil {
				return err
			}
			if name != "" {
				req.Name = name
			}

			wf, err := client.CreateWorkflow(*req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(workflowHeaders, [][]string{workflowRow(*wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to graph JSON file (required)")
	cmd.Flags().StringVar(&name, "name", "", "Workflow name (overrides the file)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			// Детали графа имеют смысл только в JSON.
			out.Print(workflowHeaders, [][]string{workflowRow(*wf)}, wf)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace workflow graph from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req, err := readGraphFile(file)
			if err != nil {
				return err
			}

			wf, err := client.UpdateWorkflow(args[0], *req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow updated: %s (version %d)", wf.ID, wf.Version))
			out.Print(workflowHeaders, [][]string{workflowRow(*wf)}, wf)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to graph JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}
