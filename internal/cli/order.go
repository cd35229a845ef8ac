package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/ports/primary"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Take and manage customer orders",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create [customer]",
	Short: "Create a new order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		due, _ := cmd.Flags().GetString("due")
		timeline, _ := cmd.Flags().GetString("timeline")

		c, err := services()
		if err != nil {
			return err
		}
		o, err := c.Orders.CreateOrder(commandContext(cmd), primary.CreateOrderRequest{
			CustomerName: args[0],
			DueDate:      due,
			TimelineDate: timeline,
		})
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		fmt.Printf("%s Created order %s for %s\n", okMark, o.ID, o.CustomerName)
		fmt.Println("  Next: kiln order add-piece", o.ID, "<piece-type> <quantity>")
		return nil
	},
}

var orderAddPieceCmd = &cobra.Command{
	Use:   "add-piece [order-id] [piece-type] [quantity]",
	Short: "Add a line-item to an order",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := parsePositiveInt("quantity", args[2])
		if err != nil {
			return err
		}

		c, err := services()
		if err != nil {
			return err
		}
		p, err := c.Orders.AddPiece(commandContext(cmd), primary.AddPieceRequest{
			OrderID:   args[0],
			PieceType: args[1],
			Quantity:  qty,
		})
		if err != nil {
			return fmt.Errorf("failed to add piece: %w", err)
		}
		fmt.Printf("%s Added %s: %s x%d at %s\n", okMark, p.ID, p.PieceType, p.Quantity, p.Stage)
		return nil
	},
}

var orderDueCmd = &cobra.Command{
	Use:   "due [order-id] [date]",
	Short: "Set an order's due date (omit the date to clear it)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := ""
		if len(args) == 2 {
			date = args[1]
		}
		timeline, _ := cmd.Flags().GetBool("timeline")

		c, err := services()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		label := "due date"
		if timeline {
			label = "timeline date"
			err = c.Orders.SetTimelineDate(ctx, args[0], date)
		} else {
			err = c.Orders.SetDueDate(ctx, args[0], date)
		}
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", label, err)
		}
		if date == "" {
			fmt.Printf("%s Cleared %s on %s\n", okMark, label, args[0])
		} else {
			fmt.Printf("%s %s %s set to %s\n", okMark, args[0], label, date)
		}
		return nil
	},
}

var orderStatusCmd = &cobra.Command{
	Use:   "status [order-id] [status]",
	Short: "Change an order's status (pending, in_progress, completed, cancelled)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		if err := c.Orders.SetStatus(commandContext(cmd), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to set status: %w", err)
		}
		fmt.Printf("%s %s is now %s\n", okMark, args[0], args[1])
		return nil
	},
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")

		c, err := services()
		if err != nil {
			return err
		}
		orders, err := c.Orders.ListOrders(commandContext(cmd), primary.OrderFilters{Status: status})
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		if len(orders) == 0 {
			fmt.Println("No orders found.")
			return nil
		}
		for _, o := range orders {
			renderOrderLine(os.Stdout, o)
		}
		return nil
	},
}

var orderShowCmd = &cobra.Command{
	Use:   "show [order-id]",
	Short: "Show an order and its pieces",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		o, err := c.Orders.GetOrder(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		renderOrderLine(os.Stdout, o)
		for _, p := range o.Pieces {
			fmt.Printf("  %s %-18s x%-4d %s %d/%d\n", idText.Sprint(p.ID), p.PieceType, p.Quantity, p.Stage, p.CompletedQuantity, p.Quantity)
		}
		return nil
	},
}

func renderOrderLine(w io.Writer, o *primary.Order) {
	dates := ""
	if o.DueDate != "" {
		dates += " due " + o.DueDate
	}
	if o.TimelineDate != "" {
		dates += " target " + o.TimelineDate
	}
	fmt.Fprintf(w, "%s: %s [%s]%s\n", idText.Sprint(o.ID), o.CustomerName, o.Status, dimText.Sprint(dates))
}

func init() {
	orderCreateCmd.Flags().String("due", "", "Hard due date (YYYY-MM-DD)")
	orderCreateCmd.Flags().String("timeline", "", "Soft target date (YYYY-MM-DD)")

	orderDueCmd.Flags().Bool("timeline", false, "Set the soft timeline date instead of the due date")

	orderListCmd.Flags().StringP("status", "s", "", "Filter by status")

	orderCmd.AddCommand(orderCreateCmd)
	orderCmd.AddCommand(orderAddPieceCmd)
	orderCmd.AddCommand(orderDueCmd)
	orderCmd.AddCommand(orderStatusCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderShowCmd)
}

// OrderCmd returns the order command
func OrderCmd() *cobra.Command {
	return orderCmd
}
