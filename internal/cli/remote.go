package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewProjectCmd создаёт группу команд для проектов на сервере.
func NewProjectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects on the API server",
	}

	cmd.AddCommand(
		newProjectListCmd(clientFn, outputFn),
		newProjectCreateCmd(clientFn, outputFn),
	)

	return cmd
}

func newProjectListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects and their flows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			projects, err := client.ListProjects()
			if err != nil {
				return err
			}

			headers := []string{"PROJECT", "NAME", "FLOW", "FLOW NAME", "NODES"}
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				if len(p.Flows) == 0 {
					rows = append(rows, []string{p.ID, p.Name, "-", "-", "-"})
					continue
				}
				for _, f := range p.Flows {
					rows = append(rows, []string{p.ID, p.Name, f.ID, f.Name, strconv.Itoa(len(f.Nodes))})
				}
			}

			out.Print(headers, rows, projects)
			return nil
		},
	}
}

func newProjectCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new project",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			project, err := client.CreateProject(name, description)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Project created: %s", project.ID))
			out.Print(
				[]string{"ID", "NAME", "FLOWS"},
				[][]string{{project.ID, project.Name, strconv.Itoa(len(project.Flows))}},
				project,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.MarkFlagRequired("name")

	return cmd
}

// NewCanvasCmd создаёт группу команд для открытого в редакторе flow.
func NewCanvasCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Operate on the flow open in the editor",
	}

	cmd.AddCommand(
		newCanvasShowCmd(clientFn, outputFn),
		newCanvasOpenCmd(clientFn, outputFn),
		newCanvasHistoryCmd("undo", "Undo the last structural change", (*Client).Undo, clientFn, outputFn),
		newCanvasHistoryCmd("redo", "Redo the last undone change", (*Client).Redo, clientFn, outputFn),
		newCanvasRunCmd(clientFn, outputFn),
		newCanvasSaveCmd(clientFn, outputFn),
	)

	return cmd
}

func printCanvas(out *Output, st *CanvasState) {
	headers := []string{"ID", "TYPE", "LABEL", "ERROR"}
	rows := make([][]string, len(st.Flow.Nodes))
	for i, n := range st.Flow.Nodes {
		rows[i] = []string{n.ID, string(n.Type), cellValue(n.Data.Label), cellValue(n.Data.Error)}
	}
	out.Print(headers, rows, st)
}

func newCanvasShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show nodes of the open flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFn().Canvas()
			if err != nil {
				return err
			}
			printCanvas(outputFn(), st)
			return nil
		},
	}
}

func newCanvasOpenCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "open PROJECT_ID FLOW_ID",
		Short: "Open a flow in the editor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			st, err := clientFn().OpenFlow(args[0], args[1])
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Flow opened: %s", st.Flow.ID))
			printCanvas(out, st)
			return nil
		},
	}
}

func newCanvasHistoryCmd(
	use, short string,
	op func(*Client) (*HistoryResult, error),
	clientFn func() *Client,
	outputFn func() *Output,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			res, err := op(clientFn())
			if err != nil {
				return err
			}
			if !res.Applied {
				out.Success("Nothing to " + use)
			}
			printCanvas(out, &res.CanvasState)
			return nil
		},
	}
}

func newCanvasRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the open flow in topological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var input any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &input); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			res, err := clientFn().Run(input)
			if err != nil {
				return err
			}

			rows := make([][]string, len(res.Executed))
			for i, id := range res.Executed {
				rows[i] = []string{strconv.Itoa(i + 1), id}
			}
			out.Print([]string{"#", "NODE"}, rows, res)

			if res.Error != "" {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload passed to trigger nodes")

	return cmd
}

func newCanvasSaveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the open flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, err := clientFn().Save()
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Flow saved: %s (%d nodes, %d edges)", flow.ID, len(flow.Nodes), len(flow.Edges)))
			return nil
		},
	}
}
