package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/ports/primary"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Manage per-date studio capacity overrides",
}

var availabilitySetCmd = &cobra.Command{
	Use:   "set [date] [hours]",
	Short: "Override the hours available on a date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("hours must be a number, got %q", args[1])
		}
		notes, _ := cmd.Flags().GetString("notes")

		c, err := services()
		if err != nil {
			return err
		}
		day, err := c.Availability.SetAvailability(commandContext(cmd), primary.SetAvailabilityRequest{
			Date:  args[0],
			Hours: hours,
			Notes: notes,
		})
		if err != nil {
			return fmt.Errorf("failed to set availability: %w", err)
		}
		fmt.Printf("%s %s set to %s\n", okMark, day.Date, formatHours(day.Hours))
		return nil
	},
}

var availabilityClearCmd = &cobra.Command{
	Use:   "clear [date]",
	Short: "Remove a date's override so the weekly template applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		if err := c.Availability.ClearAvailability(commandContext(cmd), args[0]); err != nil {
			return fmt.Errorf("failed to clear availability: %w", err)
		}
		fmt.Printf("%s %s override cleared\n", okMark, args[0])
		return nil
	},
}

var availabilityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective capacity for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		days, _ := cmd.Flags().GetInt("days")
		if from == "" {
			from = calendar.FormatDate(calendar.Day(time.Now()))
		}
		if to == "" {
			start, err := calendar.ParseDate(from)
			if err != nil {
				return err
			}
			to = calendar.FormatDate(calendar.AddDays(start, days-1))
		}

		c, err := services()
		if err != nil {
			return err
		}
		list, err := c.Availability.ListAvailability(commandContext(cmd), from, to)
		if err != nil {
			return fmt.Errorf("failed to list availability: %w", err)
		}
		renderAvailability(os.Stdout, list)
		return nil
	},
}

var capacityCmd = &cobra.Command{
	Use:   "capacity [date]",
	Short: "Show the effective capacity of one date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := services()
		if err != nil {
			return err
		}
		day, err := c.Availability.CapacityFor(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to read capacity: %w", err)
		}
		renderAvailability(os.Stdout, []*primary.Availability{day})
		return nil
	},
}

func renderAvailability(w io.Writer, days []*primary.Availability) {
	for _, d := range days {
		weekday := ""
		if t, err := calendar.ParseDate(d.Date); err == nil {
			weekday = t.Weekday().String()[:3]
		}
		source := dimText.Sprint("template")
		if d.Overridden {
			source = idText.Sprint("override")
		}
		line := fmt.Sprintf("%s %s %6s  %s", d.Date, weekday, formatHours(d.Hours), source)
		if d.Notes != "" {
			line += "  " + d.Notes
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	availabilitySetCmd.Flags().String("notes", "", "Why the day differs")

	availabilityListCmd.Flags().String("from", "", "First date (default today)")
	availabilityListCmd.Flags().String("to", "", "Last date (default from + days - 1)")
	availabilityListCmd.Flags().Int("days", 14, "Days to list when --to is not given")

	availabilityCmd.AddCommand(availabilitySetCmd)
	availabilityCmd.AddCommand(availabilityClearCmd)
	availabilityCmd.AddCommand(availabilityListCmd)
}

// AvailabilityCmd returns the availability command
func AvailabilityCmd() *cobra.Command {
	return availabilityCmd
}

// CapacityCmd returns the capacity command
func CapacityCmd() *cobra.Command {
	return capacityCmd
}
