// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/assemble"
	"github.com/pdiddy/deep-research/internal/cancel"
	"github.com/pdiddy/deep-research/internal/events"
	"github.com/pdiddy/deep-research/internal/orchestrate"
	"github.com/pdiddy/deep-research/internal/plan"
	"github.com/pdiddy/deep-research/internal/research"
	"github.com/pdiddy/deep-research/internal/synthesize"
	"github.com/pdiddy/deep-research/internal/tools"
	"github.com/pdiddy/deep-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Run the full deep research pipeline for a query",
	Long: `Research plans the query, researches each step with web search and scraping,
refines the plan into report sections, synthesizes each section with inline
citations, and assembles the final report.

Progress is printed to stderr and the report to stdout. Interrupt with Ctrl-C
to cancel at the next checkpoint. With --redis, progress is also published on
deep-research:events:<session> and "deep-research cancel <session>" stops the
run from another process.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("session", "", "session id (default: a new UUID)")
	researchCmd.Flags().String("chat", "", "chat id carried on the cancellation event")
	researchCmd.Flags().String("out", "", "directory for report.md and run.yaml (default: research.output_dir/<session>)")
	researchCmd.Flags().Int("concurrency", 0, "units run in parallel within a phase (default: research.concurrency)")
	researchCmd.Flags().Bool("redis", false, "publish events and poll cancellation through Redis")
	researchCmd.Flags().String("transcriber", "", "PDF transcriber: model or markitdown (default: scrape.transcriber)")
	researchCmd.Flags().Bool("json-events", false, "print progress events as JSON lines")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	sessionID, _ := flags.GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	chatID, _ := flags.GetString("chat")
	if n, _ := flags.GetInt("concurrency"); n > 0 {
		a.cfg.Research.Concurrency = n
	}
	if tr, _ := flags.GetString("transcriber"); tr != "" {
		a.cfg.Scrape.Transcriber = types.TranscriberBackend(tr)
	}
	outDir, _ := flags.GetString("out")
	if outDir == "" && a.cfg.Research.OutputDir != "" {
		outDir = filepath.Join(a.cfg.Research.OutputDir, sessionID)
	}
	jsonEvents, _ := flags.GetBool("json-events")
	useRedis, _ := flags.GetBool("redis")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := a.log.With(zap.String("session", sessionID))

	// Ctrl-C sets the flag; the run stops at its next checkpoint.
	var interrupt cancel.Flag
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			fmt.Fprintln(os.Stderr, "cancelling at the next checkpoint...")
			interrupt.Cancel()
		}
	}()

	// Progress goes through an in-process broker; a forwarder prints it to
	// stderr so a slow terminal never stalls the run.
	broker := events.NewBroker()
	progress, unsubscribe := broker.Subscribe(256)
	printed := make(chan struct{})
	go func() {
		events.Forward(progress, events.NewWriterEmitter(os.Stderr, jsonEvents))
		close(printed)
	}()
	defer func() {
		unsubscribe()
		<-printed
	}()

	token := cancel.Any(&interrupt, cancel.FromContext(ctx))
	var emitter events.Emitter = broker
	if useRedis {
		rdb, err := a.openRedis(ctx)
		if err != nil {
			return err
		}
		redisToken := cancel.NewRedisToken(rdb, sessionID, log)
		defer func() {
			if err := redisToken.Clear(context.Background()); err != nil {
				log.Warn("clearing cancel key", zap.Error(err))
			}
		}()
		token = cancel.Any(&interrupt, cancel.FromContext(ctx), redisToken)
		emitter = events.Multi{emitter, events.NewRedisEmitter(rdb, log)}
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	scraper, err := a.scraper(ctx, sessionID)
	if err != nil {
		return err
	}

	query := args[0]
	if err := st.SaveArtifact(ctx, sessionID, types.RoleUser, query); err != nil {
		return err
	}

	model := a.model()
	registry := tools.NewRegistry(a.searcher(), scraper, log.Named("tools"))
	orch := orchestrate.New(orchestrate.Deps{
		Planner:     plan.New(model, a.cfg.Research.MaxRecordChars, log.Named("plan")),
		Researcher:  research.New(model, registry, token, a.cfg.Research, log.Named("research")),
		Synthesizer: synthesize.New(model, log.Named("synthesize")),
		Assembler:   assemble.New(model, log.Named("assemble")),
		Emitter:     emitter,
		Persister:   st,
		Token:       token,
	}, a.cfg.Research.Concurrency, log)

	out := orch.Run(ctx, orchestrate.Request{SessionID: sessionID, ChatID: chatID, Query: query})
	unsubscribe()
	<-printed

	if outDir != "" {
		if err := orchestrate.WriteOutcome(outDir, out); err != nil {
			log.Error("writing run output", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", outDir)
		}
	}

	switch out.State {
	case orchestrate.StateDone:
		fmt.Println(out.Report)
		return nil
	case orchestrate.StateCancelled:
		fmt.Fprintf(os.Stderr, "session %s cancelled\n", sessionID)
		return nil
	default:
		if out.Report != "" {
			fmt.Println(out.Report)
		}
		return fmt.Errorf("session %s failed: %w", sessionID, out.Err)
	}
}
