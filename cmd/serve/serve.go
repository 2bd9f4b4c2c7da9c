// Package serve runs the mapping HTTP API
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fjacquet/donor-mapper/cmd/root"
)

// Address overrides server.address from the configuration
var Address string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the donor mapping HTTP API",
	Long: `Serve the donor mapping and semantic mapping HTTP API until interrupted.
Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVarP(&Address, "address", "a", "", "Listen address (default from server.address)")
}

func serveFunc(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx)
}

func run(ctx context.Context) error {
	c, err := root.NewContainer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			root.Log.WithError(err).Warn("Failed to close resources")
		}
	}()

	address := Address
	if address == "" {
		address = c.GetConfig().Server.Address
	}
	return c.NewServer().Start(ctx, address)
}
