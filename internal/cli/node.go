package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/Wireflow/internal/canvas"
	"github.com/shaiso/Wireflow/internal/engine"
	"github.com/shaiso/Wireflow/internal/executor"
)

// NodeDeps — зависимости запуска узлов из CLI.
type NodeDeps struct {
	Dispatcher *executor.Dispatcher
	Token      string
}

// NewNodeCmd создаёт группу команд для узлов flow-файла.
func NewNodeCmd(depsFn func() NodeDeps, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Inspect and run nodes of a flow file",
	}

	cmd.AddCommand(
		newNodeDataCmd(engine.DirectionInput, outputFn),
		newNodeDataCmd(engine.DirectionOutput, outputFn),
		newNodeTestCmd(depsFn, outputFn),
	)

	return cmd
}

func newNodeDataCmd(direction engine.Direction, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction) + " FILE NODE",
		Short: "Print the " + string(direction) + " context of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, err := LoadFlow(args[0])
			if err != nil {
				return err
			}
			node, ok := flow.Node(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, args[1])
			}

			out.Value(engine.DataContext(direction, node, flow.Nodes, flow.Edges))
			return nil
		},
	}
}

func newNodeTestCmd(depsFn func() NodeDeps, outputFn func() *Output) *cobra.Command {
	var payload string
	var write bool

	cmd := &cobra.Command{
		Use:   "test FILE NODE",
		Short: "Execute a single node against the outputs stored in the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			deps := depsFn()

			flow, err := LoadFlow(args[0])
			if err != nil {
				return err
			}

			var input any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &input); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			cv := canvas.New(flow.Nodes, flow.Edges)
			runner := executor.NewRunner(executor.RunnerConfig{
				Graph:      cv,
				Dispatcher: deps.Dispatcher,
			})

			_, runErr := runner.Run(cmd.Context(), args[1], executor.RunOptions{
				FlowID:  flow.ID,
				Token:   deps.Token,
				Payload: input,
			})
			var execErr *executor.ExecutionError
			if runErr != nil && !errors.As(runErr, &execErr) {
				return runErr
			}

			node, err := cv.Node(args[1])
			if err != nil {
				return err
			}

			if write {
				flow.Nodes, flow.Edges = cv.Snapshot()
				if err := WriteFlow(args[0], flow); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Node %s result written to %s", node.ID, args[0]))
			}

			if execErr != nil {
				return execErr
			}
			out.Value(node.Data.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload passed to trigger nodes")
	cmd.Flags().BoolVar(&write, "write", false, "Write the node result back to FILE")

	return cmd
}
