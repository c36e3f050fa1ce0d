// Wireflow CLI — инструмент командной строки для flow-файлов
// и HTTP API редактора.
//
// Использование:
//
//	wireflow [--api-url URL] [--token TOKEN] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	flow      Проверка и порядок выполнения flow-файла
//	node      Входной контекст, вывод и запуск узла flow-файла
//	resolve   Подстановка шаблона {{ $path }}
//	project   Проекты на сервере
//	canvas    Открытый в редакторе flow
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Wireflow/internal/cli"
	"github.com/shaiso/Wireflow/internal/credential"
	"github.com/shaiso/Wireflow/internal/executor"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL, credentialURL, token string
	var jsonOutput bool
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "wireflow",
		Short:         "Wireflow CLI — visual workflow automation tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	flags.StringVar(&credentialURL, "credential-url", "http://localhost:8000", "Credential backend URL")
	flags.StringVar(&token, "token", os.Getenv("WIREFLOW_TOKEN"), "Bearer token for the API and credentials")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "Timeout of outgoing node requests")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, token) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	depsFn := func() cli.NodeDeps {
		return cli.NodeDeps{
			Dispatcher: executor.NewDispatcher(executor.DispatcherConfig{
				HTTPClient:  &http.Client{Timeout: timeout},
				Credentials: credential.NewClient(credentialURL, timeout),
			}),
			Token: token,
		}
	}

	rootCmd.AddCommand(
		cli.NewFlowCmd(outputFn),
		cli.NewNodeCmd(depsFn, outputFn),
		cli.NewResolveCmd(outputFn),
		cli.NewProjectCmd(clientFn, outputFn),
		cli.NewCanvasCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
