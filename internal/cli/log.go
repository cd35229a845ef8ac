package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/ports/primary"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the correction activity log",
	Long:  "View who changed orders, piece progress and capacity overrides, and when",
}

var logTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		actor, _ := cmd.Flags().GetString("actor")
		entityType, _ := cmd.Flags().GetString("type")
		follow, _ := cmd.Flags().GetBool("follow")

		c, err := services()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		filters := primary.ActivityFilters{Actor: actor, EntityType: entityType, Limit: limit}

		entries, err := c.Activity.ListActivity(ctx, filters)
		if err != nil {
			return fmt.Errorf("failed to fetch activity: %w", err)
		}
		renderActivity(os.Stdout, entries)
		if !follow {
			return nil
		}

		seen := make(map[string]bool, len(entries))
		for _, e := range entries {
			seen[e.ID] = true
		}
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			latest, err := c.Activity.ListActivity(ctx, filters)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching activity: %v\n", err)
				continue
			}
			for i := len(latest) - 1; i >= 0; i-- {
				if e := latest[i]; !seen[e.ID] {
					seen[e.ID] = true
					renderActivityEntry(os.Stdout, e)
				}
			}
		}
	},
}

var logShowCmd = &cobra.Command{
	Use:   "show [entity-id]",
	Short: "Show activity for one order, piece or date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := services()
		if err != nil {
			return err
		}
		entries, err := c.Activity.ListActivity(commandContext(cmd), primary.ActivityFilters{
			EntityID: args[0],
			Limit:    limit,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch activity: %w", err)
		}
		renderActivity(os.Stdout, entries)
		return nil
	},
}

// renderActivity prints entries oldest first.
func renderActivity(w io.Writer, entries []*primary.ActivityEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity recorded.")
		return
	}
	for i := len(entries) - 1; i >= 0; i-- {
		renderActivityEntry(w, entries[i])
	}
}

func renderActivityEntry(w io.Writer, e *primary.ActivityEntry) {
	line := fmt.Sprintf("%s | %-16s | %s %-6s | %s/%s",
		dimText.Sprint(formatTimestamp(e.CreatedAt)), e.Actor, actionIcon(e.Action), e.Action,
		e.EntityType, idText.Sprint(e.EntityID))
	switch {
	case e.FieldName != "":
		line += fmt.Sprintf(" | %s: %s -> %s", e.FieldName, orDash(e.OldValue), orDash(e.NewValue))
	case e.NewValue != "":
		line += " | " + e.NewValue
	}
	fmt.Fprintln(w, line)
}

func actionIcon(action string) string {
	switch action {
	case "create":
		return "+"
	case "update":
		return "~"
	case "delete":
		return "-"
	default:
		return "?"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func init() {
	logTailCmd.Flags().IntP("limit", "n", 50, "Number of entries to show")
	logTailCmd.Flags().String("actor", "", "Filter by actor (e.g. cli:alice)")
	logTailCmd.Flags().String("type", "", "Filter by entity type (order, piece, availability)")
	logTailCmd.Flags().BoolP("follow", "f", false, "Poll for new entries until interrupted")

	logShowCmd.Flags().IntP("limit", "n", 100, "Maximum entries to show")

	logCmd.AddCommand(logTailCmd)
	logCmd.AddCommand(logShowCmd)
}

// LogCmd returns the log command
func LogCmd() *cobra.Command {
	return logCmd
}
