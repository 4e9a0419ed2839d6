// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "Print the initial research plan for a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := plan.New(a.model(), a.cfg.Research.MaxRecordChars, a.log.Named("plan")).
			Initial(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return fmt.Errorf("could not generate a research plan")
		}
		return printOutput(cmd, p)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one web search and print the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return printOutput(cmd, a.searcher().Search(commandContext(cmd), args[0]))
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Fetch one URL, extract its text, and store it as an artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		session, _ := cmd.Flags().GetString("session")
		ctx := commandContext(cmd)
		s, err := a.scraper(ctx, session)
		if err != nil {
			return err
		}
		return printOutput(cmd, s.Scrape(ctx, args[0]))
	},
}

func init() {
	for _, c := range []*cobra.Command{planCmd, searchCmd, scrapeCmd} {
		c.Flags().Bool("json", false, "print JSON instead of YAML")
		rootCmd.AddCommand(c)
	}
	scrapeCmd.Flags().String("session", "", "session id to file the artifact under")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printOutput writes v to stdout as YAML, or JSON with --json.
func printOutput(cmd *cobra.Command, v any) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
