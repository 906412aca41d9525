package main

import (
	"annopedia-backend/config"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var configPath string

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, utils.WrapError(err, "load config fail")
	}
	return cfg, nil
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "annopedia",
		Short:         "Annopedia annotation platform backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file, defaults to $ANNOPEDIA_CONFIG_FILE or "+config.DefaultConfigFile)

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := setupLogging(cfg); err != nil {
				return err
			}
			if err := metadata.Migrate(metadataConf(cfg)); err != nil {
				return utils.WrapError(err, "migrate fail")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration done")
			return nil
		},
	}
}

// tokenCmd 签发本地调试用的 JWT，生产环境的 JWT 由身份提供方签发
func tokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := common.IssueToken(cfg.Auth.JWTSecret, args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime of the token")
	return cmd
}
