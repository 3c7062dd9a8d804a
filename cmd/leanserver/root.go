package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/searchktools/lean-server/app"
	"github.com/searchktools/lean-server/config"
)

var rootCmd = &cobra.Command{
	Use:           "leanserver [command] [flags]",
	Short:         "Lean HTTP/1.x server",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveFlags struct {
	config string
	addr   string
	env    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo routes",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the registered routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(config.Default())
		if err != nil {
			return err
		}
		registerRoutes(a.Engine())

		for _, r := range a.Engine().Routes() {
			cmd.Printf("%-7s %s\n", r.Method, r.Pattern)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.config, "config", "c", "", "path to a YAML config file")
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address, overrides the config")
	serveCmd.Flags().StringVar(&serveFlags.env, "env", "", "environment: development, production or test")

	rootCmd.AddCommand(serveCmd, routesCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveFlags.config)
	if err != nil {
		return err
	}

	if serveFlags.addr != "" {
		cfg.Addr = serveFlags.addr
	}
	if serveFlags.env != "" {
		cfg.Env = serveFlags.env
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	registerRoutes(a.Engine())

	if !cfg.IsProduction() {
		for _, r := range a.Engine().Routes() {
			log.Printf("📍 %-7s %s", r.Method, r.Pattern)
		}
	}

	return a.Run(cmd.Context())
}
