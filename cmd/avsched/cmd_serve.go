package main

import (
	"github.com/spf13/cobra"

	"avsched/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard read API and ICS feed",
	RunE:  runServe,
}

var serveListen string

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default HTTP_LISTEN)")
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := web.NewServer(db, cfg, logger)
	if err != nil {
		return err
	}
	addr := cfg.HTTPListen
	if serveListen != "" {
		addr = serveListen
	}
	return srv.ListenAndServe(cmd.Context(), addr)
}
