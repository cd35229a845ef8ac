package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/httpapi"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := services()
			if err != nil {
				return err
			}
			defer c.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = c.Config.HTTPAddr
			}

			gin.SetMode(gin.ReleaseMode)
			server := httpapi.NewServer(httpapi.Deps{
				Schedule:     c.Schedule,
				Tasks:        c.Tasks,
				Pieces:       c.Pieces,
				Orders:       c.Orders,
				Availability: c.Availability,
				Activity:     c.Activity,
				Metrics:      c.Metrics.Handler(),
				Logger:       c.Logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Printf("Serving kiln API on http://%s\n", addr)
			return server.Run(ctx, addr)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from http.addr)")
	return cmd
}
