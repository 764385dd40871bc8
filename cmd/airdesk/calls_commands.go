package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/api"
	"airdesk/internal/store"
)

func newCallsCommand(ctx *commandContext) *cobra.Command {
	callsCmd := &cobra.Command{
		Use:   "calls",
		Short: "Submit and inspect calls in the processing pipeline",
	}
	callsCmd.AddCommand(newCallsSubmitCommand(ctx))
	callsCmd.AddCommand(newCallsListCommand(ctx))
	callsCmd.AddCommand(newCallsRetryCommand(ctx))
	return callsCmd
}

// newCallsSubmitCommand queues a finished call transcript. It prefers the
// daemon and writes to the store directly when the daemon is not reachable.
func newCallsSubmitCommand(ctx *commandContext) *cobra.Command {
	var callerID string
	var emergency bool

	cmd := &cobra.Command{
		Use:   "submit [transcript-file|-]",
		Short: "Queue a call transcript for ticketing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			transcript, err := readTranscript(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			if strings.TrimSpace(transcript) == "" {
				return errors.New("transcript is empty")
			}
			out := cmd.OutOrStdout()

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			accepted, err := client.SubmitCall(cmd.Context(), api.CallSubmission{
				CallerID:            callerID,
				Transcript:          transcript,
				EmergencyRedirected: emergency,
			})
			if err == nil {
				fmt.Fprintf(out, "Queued call %s (%s)\n", accepted.CallID, accepted.Status)
				return nil
			}
			if !api.IsUnavailable(err) {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				call, err := st.NewCall(cmd.Context(), store.NewCallInput{
					FirmID:              ctx.firmID(),
					CallerID:            strings.TrimSpace(callerID),
					Transcript:          transcript,
					EmergencyRedirected: emergency,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued call %s (%s); it will be processed when airdeskd starts\n", call.ID, call.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&callerID, "caller", "", "Caller ID (phone number)")
	cmd.Flags().BoolVar(&emergency, "emergency", false, "Caller was redirected to emergency services")
	return cmd
}

func newCallsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List calls and their pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []store.CallStatus
			for _, value := range statuses {
				status, ok := store.ParseCallStatus(value)
				if !ok {
					return fmt.Errorf("unknown call status %q", value)
				}
				filter = append(filter, status)
			}
			return ctx.withStore(func(st *store.Store) error {
				calls, err := st.ListCalls(cmd.Context(), ctx.firmID(), filter...)
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]api.Call, 0, len(calls))
					for _, call := range calls {
						out = append(out, api.FromCall(call))
					}
					return writeJSON(cmd, out)
				}
				if len(calls) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No calls")
					return nil
				}
				rows := make([][]string, 0, len(calls))
				for _, call := range calls {
					rows = append(rows, []string{
						call.ID,
						string(call.Status),
						orDash(call.TicketID),
						fmt.Sprint(call.Attempts),
						truncate(orDash(call.ErrorMessage), 50),
						call.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Call", "Status", "Ticket", "Attempts", "Error", "Received"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by call status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newCallsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [call-id...]",
		Short: "Requeue failed calls at the stage that failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				ids := args
				if len(ids) == 0 {
					failed, err := st.ListCalls(cmd.Context(), ctx.firmID(), store.CallFailed)
					if err != nil {
						return err
					}
					for _, call := range failed {
						ids = append(ids, call.ID)
					}
				}
				if len(ids) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No failed calls")
					return nil
				}
				updated, err := st.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d call(s)\n", updated)
				return nil
			})
		},
	}
}

func readTranscript(stdin io.Reader, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read transcript: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}
