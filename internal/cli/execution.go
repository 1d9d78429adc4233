package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage executions",
	}

	cmd.AddCommand(
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionCancelCmd(clientFn, outputFn),
		newExecutionDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func executionRow(e ExecutionResponse) []string {
	return []string{
		e.ID,
		e.WorkflowID,
		e.Status,
		e.Trigger,
		truncate(e.Error, 40),
		e.StartedAt,
		e.FinishedAt,
	}
}

var executionHeaders = []string{"ID", "WORKFLOW", "STATUS", "TRIGGER", "ERROR", "STARTED", "FINISHED"}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payloadJSON string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var req CreateExecutionRequest
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &req.Payload); err != nil {
					return fmt.Errorf("invalid payload JSON: %w", err)
				}
			}

			exec, err := client.StartExecution(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Print(executionHeaders, [][]string{executionRow(*exec)}, exec)
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadJSON, "payload", "", "Seed payload as JSON object")

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list WORKFLOW_ID",
		Short: "List executions of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(args[0], limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = executionRow(e)
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of executions")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution with node history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			detail, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(executionHeaders, [][]string{executionRow(detail.ExecutionResponse)}, detail)

			if len(detail.Nodes) > 0 {
				nodeHeaders := []string{"NODE", "STATUS", "IN", "OUT", "ERROR", "STARTED"}
				rows := make([][]string, len(detail.Nodes))
				for i, n := range detail.Nodes {
					rows[i] = []string{
						n.NodeID,
						n.Status,
						strconv.Itoa(len(n.InputItems)),
						strconv.Itoa(len(n.OutputItems)),
						truncate(n.Error, 40),
						n.StartedAt,
					}
				}
				// В JSON-режиме узлы уже внутри detail.
				if !out.jsonMode {
					out.Table(nodeHeaders, rows)
				}
			}
			return nil
		},
	}
}

func newExecutionCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.CancelExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Cancel requested: %s", exec.ID))
			out.Print(executionHeaders, [][]string{executionRow(*exec)}, exec)
			return nil
		},
	}
}

func newExecutionDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution deleted: %s", args[0]))
			return nil
		},
	}
}
