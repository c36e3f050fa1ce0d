package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Wireflow/internal/domain"
	"github.com/shaiso/Wireflow/internal/engine"
)

// NewFlowCmd создаёт группу команд для работы с файлами flow.
func NewFlowCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect flow files",
	}

	cmd.AddCommand(
		newFlowValidateCmd(outputFn),
		newFlowOrderCmd(outputFn),
	)

	return cmd
}

func newFlowValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate nodes, edges and acyclicity of a flow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, err := LoadFlow(args[0])
			if err != nil {
				return err
			}
			if err := engine.ValidateFlow(flow); err != nil {
				return err
			}
			roots, err := engine.Roots(flow)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Flow %s is valid: %d nodes, %d edges, entry: %s",
				displayName(flow), len(flow.Nodes), len(flow.Edges), strings.Join(roots, ", ")))
			return nil
		},
	}
}

func newFlowOrderCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "order FILE",
		Short: "Print the execution order of a flow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, err := LoadFlow(args[0])
			if err != nil {
				return err
			}
			order, err := engine.RunOrder(flow)
			if err != nil {
				return err
			}

			headers := []string{"#", "ID", "TYPE", "LABEL"}
			rows := make([][]string, len(order))
			for i, id := range order {
				n, _ := flow.Node(id)
				rows[i] = []string{strconv.Itoa(i + 1), n.ID, string(n.Type), cellValue(n.Data.Label)}
			}

			out.Print(headers, rows, order)
			return nil
		},
	}
}

func displayName(flow domain.Flow) string {
	if flow.Name != "" {
		return strconv.Quote(flow.Name)
	}
	return flow.ID
}
