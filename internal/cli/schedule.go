package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/ports/primary"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Build and inspect the production schedule",
}

var scheduleRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Discard pending tasks and rebuild the schedule",
	Long: `Regenerate replaces every pending task with a fresh plan built from
outstanding pieces, stage hours and studio capacity. Completed tasks are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		resp, err := c.Schedule.Regenerate(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to regenerate schedule: %w", err)
		}
		renderRegenerate(os.Stdout, resp)
		return nil
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show scheduled tasks by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		status, _ := cmd.Flags().GetString("status")
		pieceID, _ := cmd.Flags().GetString("piece")

		c, err := services()
		if err != nil {
			return err
		}
		tasks, err := c.Schedule.GetSchedule(commandContext(cmd), primary.ScheduleFilters{
			Status:  status,
			PieceID: pieceID,
			From:    from,
			To:      to,
		})
		if err != nil {
			return fmt.Errorf("failed to read schedule: %w", err)
		}
		renderSchedule(os.Stdout, tasks)
		return nil
	},
}

var scheduleRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent regeneration runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		c, err := services()
		if err != nil {
			return err
		}
		runs, err := c.Schedule.ListRuns(commandContext(cmd), limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No regeneration runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %-8s %3d created %3d replaced %2d skipped  by %s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Result,
				r.TasksCreated, r.TasksDeleted, r.Skipped, r.TriggeredBy)
		}
		return nil
	},
}

func renderRegenerate(w io.Writer, resp *primary.RegenerateResponse) {
	fmt.Fprintf(w, "%s %s\n", okMark, resp.Message)
	for _, sk := range resp.Skipped {
		target := sk.PieceID
		if sk.Stage != "" {
			target += "/" + sk.Stage
		}
		fmt.Fprintf(w, "  %s %s: %s\n", lateText.Sprint("skipped"), target, sk.Reason)
	}
}

// renderSchedule prints tasks grouped by date, late tasks in red.
func renderSchedule(w io.Writer, tasks []*primary.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks scheduled.")
		return
	}

	currentDate := ""
	dayHours := 0.0
	flush := func() {
		if currentDate != "" {
			fmt.Fprintf(w, "  %s\n", dimText.Sprintf("total %s", formatHours(dayHours)))
		}
	}
	for _, t := range tasks {
		if t.Date != currentDate {
			flush()
			currentDate = t.Date
			dayHours = 0
			fmt.Fprintf(w, "\n%s\n", t.Date)
		}
		dayHours += t.EstimatedHours

		line := fmt.Sprintf("%-12s %-16s x%-4d %6s", t.PieceID, t.TaskType, t.Quantity, formatHours(t.EstimatedHours))
		marker := ""
		switch {
		case t.Status == "completed":
			line = dimText.Sprint(line)
			marker = " " + okMark
		case t.IsLate:
			line = lateText.Sprint(line)
			marker = " " + lateText.Sprint("[late]")
		}
		fmt.Fprintf(w, "  %s  %s%s\n", idText.Sprint(t.ID), line, marker)
	}
	flush()
}

func init() {
	scheduleShowCmd.Flags().String("from", "", "First date to show (YYYY-MM-DD)")
	scheduleShowCmd.Flags().String("to", "", "Last date to show (YYYY-MM-DD)")
	scheduleShowCmd.Flags().StringP("status", "s", "", "Filter by status (pending, completed)")
	scheduleShowCmd.Flags().String("piece", "", "Filter by piece ID")

	scheduleRunsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")

	scheduleCmd.AddCommand(scheduleRegenerateCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleRunsCmd)
}

// ScheduleCmd returns the schedule command
func ScheduleCmd() *cobra.Command {
	return scheduleCmd
}
