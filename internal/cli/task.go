package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Work scheduled tasks",
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a pending task completed",
	Long: `Complete records the task and credits its quantity to the piece. When the
last pending slice of the piece's current stage is done, the piece advances.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		resp, err := c.Tasks.CompleteTask(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to complete task: %w", err)
		}

		fmt.Printf("%s Completed %s (%s x%d)\n", okMark, resp.Task.ID, resp.Task.TaskType, resp.Task.Quantity)
		p := resp.Piece
		if resp.StageAdvanced {
			fmt.Printf("  %s advanced to %s\n", p.ID, p.Stage)
		} else {
			fmt.Printf("  %s at %s: %d/%d done\n", p.ID, p.Stage, p.CompletedQuantity, p.Quantity)
		}
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		t, err := c.Tasks.GetTask(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		fmt.Printf("%s: %s x%d for %s (%s)\n", idText.Sprint(t.ID), t.TaskType, t.Quantity, t.PieceID, t.OrderID)
		fmt.Printf("  Date: %s  Hours: %s  Status: %s\n", t.Date, formatHours(t.EstimatedHours), t.Status)
		if t.IsLate {
			fmt.Printf("  %s\n", lateText.Sprint("Late: scheduled after the order's due date"))
		}
		if t.CompletedAt != "" {
			fmt.Printf("  Completed: %s\n", t.CompletedAt)
		}
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskShowCmd)
}

// TaskCmd returns the task command
func TaskCmd() *cobra.Command {
	return taskCmd
}
