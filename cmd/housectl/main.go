package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/housedesk-backend/internal/cli"
	"github.com/yungbote/housedesk-backend/internal/platform/envutil"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "housectl",
		Short:         "Operator tooling for the housedesk backend",
		Version:       envutil.String("APP_VERSION", "dev"),
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `housectl prepares and inspects the housedesk database: schema migration,
fixture seeding, and consistency checks of request status history.`,
	}

	rootCmd.AddCommand(cli.MigrateCmd())
	rootCmd.AddCommand(cli.SeedCmd())
	rootCmd.AddCommand(cli.VerifyCmd())
	rootCmd.AddCommand(cli.TransitionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
