package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcr-io/lexcr/internal/cr"
	"github.com/lexcr-io/lexcr/internal/handler"
	"github.com/lexcr-io/lexcr/internal/lexapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Lambda custom resource handler",
	Long: `Starts the Lambda event loop serving the Custom::LexBot,
Custom::LexBotVersion and Custom::LexBotAlias resource types.

This is the container entrypoint; it only works inside a Lambda runtime.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	client, err := lexapi.NewClient(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to configure Lex client: %w", err)
	}

	h := handler.New(cr.NewProvisioner(client))
	h.Serve()
	return nil
}
