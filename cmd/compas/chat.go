package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/joshuamtm/compas-navigator/internal/report"
	"github.com/joshuamtm/compas-navigator/pkg/config"
)

func chatCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a coaching session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			// A terminal session has no use for a remote store.
			cfg.Store.Kind = "memory"
			return runChat(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Configuration file")
	return cmd
}

func runChat(ctx context.Context, cfg *config.Config) error {
	eng, store, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := eng.CreateSession(ctx)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("compas-navigator v%s — session %s\n", Version, snap.ID)
	fmt.Println("Commands: :report  :stage  :quit")
	fmt.Println()

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case ":quit", ":q":
			return nil
		case ":report":
			current, err := eng.GetSession(ctx, snap.ID)
			if err != nil {
				return err
			}
			fmt.Println(report.Render(current))
			continue
		case ":stage":
			current, err := eng.GetSession(ctx, snap.ID)
			if err != nil {
				return err
			}
			fmt.Printf("stage: %s\n\n", current.Stage.Title())
			continue
		}

		result, err := eng.SubmitTurn(ctx, snap.ID, input)
		if err != nil {
			log.Printf("turn failed: %v", err)
			fmt.Println("(the coach is unavailable right now; your message was kept, try again)")
			continue
		}

		fmt.Printf("\ncoach> %s\n\n", result.AssistantMessage)
		if result.StageAdvanced {
			fmt.Printf("— advanced to %s —\n\n", result.Stage.Title())
		}
		if result.AnalysisFailed {
			log.Printf("analysis skipped: %s", result.AnalysisError)
		}
	}
}
