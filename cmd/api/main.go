package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title           Cinema Booking API
// @version         1.0
// @description     Movie catalog, ticket sales and redemption with role and ownership based access control.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:   "cinema",
		Short: "Cinema booking backend",
		Long:  `Cinema serves the movie catalog and sells and redeems session tickets over HTTP.`,
		// bare invocation starts the server
		RunE:         runServe,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newCreateAdminCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
