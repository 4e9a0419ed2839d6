// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/cancel"
	"github.com/pdiddy/deep-research/internal/events"
	"github.com/pdiddy/deep-research/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "Show the messages and files stored for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			return st.ExportYAML(ctx, args[0], os.Stdout)
		}

		msgs, err := st.Messages(ctx, args[0])
		if err != nil {
			return err
		}
		files, err := st.Files(ctx, args[0])
		if err != nil {
			return err
		}
		if len(msgs) == 0 && len(files) == 0 {
			return fmt.Errorf("no history for session %s", args[0])
		}

		for _, m := range msgs {
			fmt.Printf("--- %s (%s)\n\n%s\n\n", m.Role, m.CreatedAt.Format("2006-01-02 15:04:05"), m.Content)
		}
		if len(files) > 0 {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILENAME\tTYPE\tSIZE")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.ID, f.Filename, f.MimeType, f.Size)
			}
			return tw.Flush()
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <session>",
	Short: "Ask a running session to stop at its next checkpoint",
	Long: `Cancel sets the session's cancellation key in Redis. A run started with
--redis polls the key and stops at its next checkpoint, emitting a single
cancellation event.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		rdb, err := a.openRedis(ctx)
		if err != nil {
			return err
		}
		if err := cancel.Request(ctx, rdb, args[0]); err != nil {
			return err
		}
		fmt.Printf("Cancellation requested for session %s\n", args[0])
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <session>",
	Short: "Stream a session's progress events from Redis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		rdb, err := a.openRedis(ctx)
		if err != nil {
			return err
		}
		ch, err := events.Watch(ctx, rdb, args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		out := events.NewWriterEmitter(os.Stdout, asJSON)
		for ev := range ch {
			out.Emit(ev.Name, ev.Payload, ev.SessionID)
			switch ev.Name {
			case types.EventDeepResearchResult, types.EventTaskError, types.EventGenerationCancelled:
				return nil
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deep-research", version)
	},
}

func init() {
	historyCmd.Flags().Bool("yaml", false, "export the session as YAML")
	watchCmd.Flags().Bool("json", false, "print events as JSON lines")

	rootCmd.AddCommand(historyCmd, cancelCmd, watchCmd, versionCmd)
}
