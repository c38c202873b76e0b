package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apricityDigital/attendease-backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "attendease",
	Short: "AttendEase attendance backend",
	Long: `AttendEase is the attendance-management backend: face-verified
punch-in/punch-out for field workers, a role/permission/city/zone
authorization model, and scope-filtered operational reports.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
