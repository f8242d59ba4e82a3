package main

import (
	"errors"
	"fmt"

	"cinema/internal/config"
	"cinema/internal/database"
	"cinema/internal/logger"
	"cinema/internal/server"

	"github.com/spf13/cobra"
)

func newCreateAdminCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN account if the username is free",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.Init(cfg.Log.Level, cfg.Log.Format)

			if username != "" {
				cfg.Auth.DefaultAdminUsername = username
			}
			if password != "" {
				cfg.Auth.DefaultAdminPassword = password
			}
			if cfg.Auth.DefaultAdminPassword == "" {
				return errors.New("a password is required: pass --password or set DEFAULT_ADMIN_PASSWORD")
			}

			db, err := database.NewConnection(cfg.DB)
			if err != nil {
				return err
			}

			app, err := server.New(cfg, db, nil, log)
			if err != nil {
				return err
			}
			return app.EnsureDefaultAdmin(cmd.Context(), cfg.Auth)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (default DEFAULT_ADMIN_USERNAME)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Admin password (default DEFAULT_ADMIN_PASSWORD)")
	return cmd
}
