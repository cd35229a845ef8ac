package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/kiln/internal/config"
	"github.com/example/kiln/internal/core/calendar"
	"github.com/example/kiln/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the kiln config and database",
		Long: `Initialize writes ~/.kiln/kiln.yaml with default settings (an existing file is
kept) and creates the database with the required schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")
			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = filepath.Join(config.DefaultDir(), "kiln.yaml")
			}

			if err := config.WriteDefault(configPath); err != nil {
				return err
			}
			fmt.Printf("%s Config at %s\n", okMark, configPath)

			c, err := services()
			if err != nil {
				return err
			}
			fmt.Printf("%s Database initialized at %s\n", okMark, c.Config.DatabasePath)

			if seed {
				if err := db.SeedFixtures(c.DB, calendar.Day(time.Now())); err != nil {
					return fmt.Errorf("failed to seed fixtures: %w", err)
				}
				fmt.Printf("%s Seeded demo orders\n", okMark)
			}

			fmt.Println()
			fmt.Println("Next steps:")
			if !seed {
				fmt.Println(`  kiln order create "Harbor Cafe" --due 2026-03-01`)
			}
			fmt.Println("  kiln schedule regenerate")
			fmt.Println("  kiln schedule show")
			return nil
		},
	}
	cmd.Flags().Bool("seed", false, "Load demo orders into a fresh database")
	return cmd
}
