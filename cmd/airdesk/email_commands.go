package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"airdesk/internal/email"
	"airdesk/internal/firm"
	"airdesk/internal/logging"
	"airdesk/internal/store"
	"airdesk/internal/summary"
	"airdesk/internal/ticket"
)

func newEmailCommand(ctx *commandContext) *cobra.Command {
	emailCmd := &cobra.Command{
		Use:   "email",
		Short: "Preview and test dispatch e-mails",
	}
	emailCmd.AddCommand(newEmailPreviewCommand(ctx))
	emailCmd.AddCommand(newEmailTestCommand(ctx))
	return emailCmd
}

func newEmailPreviewCommand(ctx *commandContext) *cobra.Command {
	var ticketID string
	var format string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the dispatch e-mail for a ticket or the sample ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				settings, t, sum, err := emailSubject(cmd, ctx, st, ticketID)
				if err != nil {
					return err
				}
				msg, err := email.Renderer{DashboardURL: cfg.Email.DashboardURL}.Render(t, sum, settings)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch strings.ToLower(strings.TrimSpace(format)) {
				case "html":
					fmt.Fprintln(out, msg.HTML)
				case "text", "":
					fmt.Fprintf(out, "To: %s\nSubject: %s\n\n%s\n", orDash(strings.Join(msg.To, ", ")), msg.Subject, msg.Text)
				default:
					return fmt.Errorf("unknown format %q (use text or html)", format)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ticketID, "ticket", "", "Ticket ID to render (defaults to the sample ticket)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or html")
	return cmd
}

func newEmailTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send the sample ticket e-mail to the firm's recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				settings, t, sum, err := emailSubject(cmd, ctx, st, "")
				if err != nil {
					return err
				}
				if len(settings.NotifyEmails) == 0 {
					return fmt.Errorf("firm %s has no notification e-mails; set them with `airdesk firm set --emails`", settings.FirmID)
				}
				msg, err := email.Renderer{DashboardURL: cfg.Email.DashboardURL}.Render(t, sum, settings)
				if err != nil {
					return err
				}
				msg.Subject = "[TEST] " + msg.Subject

				client := email.NewClient(email.ClientConfig{
					APIKey:  cfg.Email.ResendAPIKey,
					BaseURL: cfg.Email.BaseURL,
					Timeout: time.Duration(cfg.Email.RequestTimeout) * time.Second,
				})
				sender := email.NewSender(client, email.SenderConfig{
					From:        cfg.Email.From,
					CC:          cfg.Email.CC,
					MaxAttempts: cfg.Email.MaxAttempts,
				}, email.WithLogger(logging.NewNop()))
				if !sender.Enabled() {
					return email.ErrNotConfigured
				}
				result, err := sender.Send(cmd.Context(), msg)
				if err != nil {
					return fmt.Errorf("send test e-mail after %d attempt(s): %w", result.Attempts, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s (id %s)\n", msg.Subject, strings.Join(msg.To, ", "), orDash(result.ID))
				return nil
			})
		},
	}
}

// emailSubject resolves the firm settings and the ticket to render. An empty
// ticketID selects the sample ticket.
func emailSubject(cmd *cobra.Command, ctx *commandContext, st *store.Store, ticketID string) (firm.Settings, *ticket.Ticket, summary.Summary, error) {
	settings, _, err := ctx.firmSettings(cmd.Context(), st)
	if err != nil {
		return firm.Settings{}, nil, summary.Summary{}, err
	}
	if strings.TrimSpace(ticketID) == "" {
		t, sum := email.SampleTicket(time.Now())
		t.FirmID = settings.FirmID
		return settings, t, sum, nil
	}
	t, err := st.GetTicket(cmd.Context(), strings.TrimSpace(ticketID))
	if err != nil {
		return firm.Settings{}, nil, summary.Summary{}, err
	}
	if t.FirmID != settings.FirmID {
		return firm.Settings{}, nil, summary.Summary{}, ticket.ErrForbidden
	}
	sum, _ := summary.Parse(t.SummaryJSON)
	return settings, t, sum, nil
}
