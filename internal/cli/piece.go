package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/ports/primary"
)

var pieceCmd = &cobra.Command{
	Use:   "piece",
	Short: "Inspect and correct piece progress",
}

var pieceProgressCmd = &cobra.Command{
	Use:   "progress [piece-id]",
	Short: "Correct a piece's stage or completed quantity",
	Long: `Progress overrides what the studio recorded for a piece. Changing the stage
without --completed starts the new stage at zero. Pending tasks are updated on the
next regeneration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.UpdatePieceProgressRequest{PieceID: args[0]}
		if cmd.Flags().Changed("stage") {
			stage, _ := cmd.Flags().GetString("stage")
			req.Stage = &stage
		}
		if cmd.Flags().Changed("completed") {
			completed, _ := cmd.Flags().GetInt("completed")
			req.CompletedQuantity = &completed
		}
		if req.Stage == nil && req.CompletedQuantity == nil {
			return fmt.Errorf("nothing to change\nHint: pass --stage and/or --completed")
		}

		c, err := services()
		if err != nil {
			return err
		}
		p, err := c.Pieces.UpdatePieceProgress(commandContext(cmd), req)
		if err != nil {
			return fmt.Errorf("failed to update piece: %w", err)
		}
		fmt.Printf("%s %s now at %s: %d/%d done\n", okMark, p.ID, p.Stage, p.CompletedQuantity, p.Quantity)
		return nil
	},
}

var pieceShowCmd = &cobra.Command{
	Use:   "show [piece-id]",
	Short: "Show piece details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		p, err := c.Pieces.GetPiece(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to get piece: %w", err)
		}
		fmt.Printf("%s: %s x%d (order %s)\n", idText.Sprint(p.ID), p.PieceType, p.Quantity, p.OrderID)
		fmt.Printf("  Stage: %s  Done: %d/%d\n", p.Stage, p.CompletedQuantity, p.Quantity)
		if p.StageChangedAt != "" {
			fmt.Printf("  Stage since: %s\n", p.StageChangedAt)
		}
		return nil
	},
}

func init() {
	pieceProgressCmd.Flags().String("stage", "", "New stage name")
	pieceProgressCmd.Flags().Int("completed", 0, "Units completed in the stage")

	pieceCmd.AddCommand(pieceProgressCmd)
	pieceCmd.AddCommand(pieceShowCmd)
}

// PieceCmd returns the piece command
func PieceCmd() *cobra.Command {
	return pieceCmd
}
