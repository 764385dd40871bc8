package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/config"
	"airdesk/internal/intake"
	"airdesk/internal/logging"
	"airdesk/internal/services/llm"
	"airdesk/internal/store"
)

func newIntakeCommand(ctx *commandContext) *cobra.Command {
	intakeCmd := &cobra.Command{
		Use:   "intake",
		Short: "Exercise the live intake script",
	}
	intakeCmd.AddCommand(newIntakeSimulateCommand(ctx))
	return intakeCmd
}

// newIntakeSimulateCommand runs a live intake session against lines read
// from stdin, one caller utterance per line.
func newIntakeSimulateCommand(ctx *commandContext) *cobra.Command {
	var callerID string
	var useLLM bool
	var queue bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an intake conversation from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if useLLM && !cfg.LLMEnabled() {
				return fmt.Errorf("--llm needs llm.api_key; set OPENAI_API_KEY or edit the config")
			}
			return ctx.withStore(func(st *store.Store) error {
				settings, _, err := ctx.firmSettings(cmd.Context(), st)
				if err != nil {
					return err
				}
				session := intake.NewSession(settings.IntakeContext(), callerID)

				var chatter intake.Chatter
				if useLLM || (cfg.LLM.IntakeMode == config.IntakeModeLLM && cfg.LLMEnabled()) {
					llmCfg := cfg.GetLLM()
					chatter = llm.NewClient(llm.Config{
						APIKey:         llmCfg.APIKey,
						BaseURL:        llmCfg.BaseURL,
						Model:          llmCfg.Model,
						Referer:        llmCfg.Referer,
						Title:          llmCfg.Title,
						TimeoutSeconds: llmCfg.TimeoutSeconds,
					})
				}

				out := cmd.OutOrStdout()
				runSimulation(cmd, session, chatter, cmd.InOrStdin(), out)
				printRecord(out, session.Record)

				if !queue {
					return nil
				}
				if !session.Done {
					return fmt.Errorf("conversation ended before the intake script closed; call not queued")
				}
				call, err := st.NewCall(cmd.Context(), store.NewCallInput{
					FirmID:     settings.FirmID,
					CallerID:   session.CallerID,
					Transcript: session.Transcript(),
					Record:     session.Record,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nQueued call %s\n", call.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&callerID, "caller", "", "Caller ID to confirm during the call")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "Drive turns with the language model")
	cmd.Flags().BoolVar(&queue, "queue", false, "Queue the finished call for ticketing")
	return cmd
}

func runSimulation(cmd *cobra.Command, session *intake.Session, chatter intake.Chatter, in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "Agent: %s\n", session.Start().AssistantSay)

	scanner := bufio.NewScanner(in)
	for !session.Done && scanner.Scan() {
		utterance := strings.TrimSpace(scanner.Text())
		fmt.Fprintf(out, "Caller: %s\n", utterance)
		var turn intake.Turn
		if chatter != nil {
			turn = intake.LLMTurn(cmd.Context(), chatter, session, utterance, logging.NewNop())
		} else {
			turn = session.Advance(utterance)
		}
		if turn.AssistantSay != "" {
			fmt.Fprintf(out, "Agent: %s\n", turn.AssistantSay)
		}
	}
}

func printRecord(out io.Writer, record intake.Record) {
	rows := make([][]string, 0, len(intake.Fields))
	for _, field := range intake.Fields {
		if value := record.Get(field); value != "" {
			rows = append(rows, []string{string(field), value})
		}
	}
	fmt.Fprintln(out)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Nothing captured")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
}
