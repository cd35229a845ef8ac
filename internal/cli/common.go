package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/ctxutil"
	"github.com/example/kiln/internal/wire"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	lateText = color.New(color.FgRed, color.Bold)
	dimText  = color.New(color.FgHiBlack)
	idText   = color.New(color.FgCyan)
)

// AddPersistentFlags registers flags shared by every command on root.
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "Config file (default ./kiln.yaml or ~/.kiln/kiln.yaml)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			wire.SetConfigFile(path)
		}
	}
}

// services returns the process container or a wrapped init error.
func services() (*wire.Container, error) {
	c, err := wire.Services()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kiln: %w", err)
	}
	return c, nil
}

// commandContext tags the context with the invoking user.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	user := os.Getenv("USER")
	if user == "" {
		user = ctxutil.UnknownActor
	}
	return ctxutil.WithActorID(ctx, "cli:"+user)
}

func parsePositiveInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}
