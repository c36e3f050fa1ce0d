package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/Wireflow/internal/engine"
)

// reference — строка вывода resolve --refs.
type reference struct {
	Expression string `json:"expression"`
	Found      bool   `json:"found"`
	Value      any    `json:"value,omitempty"`
}

// NewResolveCmd создаёт команду подстановки шаблона.
func NewResolveCmd(outputFn func() *Output) *cobra.Command {
	var (
		contextFile string
		refs        bool
	)

	cmd := &cobra.Command{
		Use:   "resolve TEMPLATE",
		Short: "Resolve {{ $path }} references against a JSON or YAML context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			var ctx any
			if contextFile != "" {
				v, err := loadJSONValue(contextFile)
				if err != nil {
					return err
				}
				ctx = v
			}

			if !refs {
				out.Value(engine.Resolve(args[0], ctx))
				return nil
			}

			found := engine.Extract(args[0])
			rows := make([][]string, len(found))
			data := make([]reference, len(found))
			for i, ref := range found {
				v, ok := engine.Lookup(ref.Expression, ctx)
				data[i] = reference{Expression: ref.Expression, Found: ok, Value: v}
				value := "-"
				if ok {
					value = cellValue(v)
				}
				rows[i] = []string{ref.Expression, value}
			}
			out.Print([]string{"EXPRESSION", "VALUE"}, rows, data)
			return nil
		},
	}

	cmd.Flags().StringVar(&contextFile, "context", "", "Path to the context file")
	cmd.Flags().BoolVar(&refs, "refs", false, "List references instead of substituting them")

	return cmd
}
