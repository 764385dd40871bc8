package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/api"
	"airdesk/internal/dispatch"
	"airdesk/internal/store"
	"airdesk/internal/ticket"
)

func newTicketsCommand(ctx *commandContext) *cobra.Command {
	ticketsCmd := &cobra.Command{
		Use:     "tickets",
		Aliases: []string{"ticket"},
		Short:   "Inspect and move dispatch tickets",
	}
	ticketsCmd.AddCommand(newTicketsListCommand(ctx))
	ticketsCmd.AddCommand(newTicketsBoardCommand(ctx))
	ticketsCmd.AddCommand(newTicketsShowCommand(ctx))
	ticketsCmd.AddCommand(newTicketsMoveCommand(ctx))
	return ticketsCmd
}

func newTicketsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var urgentOnly bool
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the firm's tickets, urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ticket.Filter{FirmID: ctx.firmID(), UrgentOnly: urgentOnly, Limit: limit}
			for _, value := range statuses {
				status, err := ticket.ParseStatus(value)
				if err != nil {
					return err
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withStore(func(st *store.Store) error {
				tickets, err := st.ListTickets(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.FromTickets(tickets))
				}
				out := cmd.OutOrStdout()
				if len(tickets) == 0 {
					fmt.Fprintln(out, "No tickets")
					return nil
				}
				fmt.Fprintln(out, renderTickets(tickets, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (READY, DISPATCHED, COMPLETED)")
	cmd.Flags().BoolVarP(&urgentOnly, "urgent", "u", false, "Only show URGENT tickets")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum tickets to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newTicketsBoardCommand(ctx *commandContext) *cobra.Command {
	var urgentOnly bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tickets grouped by board column",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				board, err := dispatch.Load(cmd.Context(), st, st, ctx.firmID(), urgentOnly)
				if err != nil {
					return err
				}
				columns := board.Columns()
				if asJSON {
					return writeJSON(cmd, api.FromColumns(columns))
				}
				renderBoard(cmd.OutOrStdout(), columns)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&urgentOnly, "urgent", "u", false, "Only show URGENT tickets")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newTicketsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Show a ticket as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				t, err := st.GetTicket(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if t.FirmID != ctx.firmID() {
					return ticket.ErrForbidden
				}
				return writeJSON(cmd, api.FromTicket(t))
			})
		},
	}
}

// newTicketsMoveCommand moves a ticket through the daemon so subscribers see
// the change, falling back to the store when the daemon is down.
func newTicketsMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <ticket-id> <status>",
		Short: "Move a ticket forward on the board",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			status, err := ticket.ParseStatus(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.MoveTicket(cmd.Context(), id, string(status))
			if err == nil {
				printMove(out, id, status, resp.Changed)
				return nil
			}
			if !api.IsUnavailable(err) {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				board, err := dispatch.Load(cmd.Context(), st, st, ctx.firmID(), false)
				if err != nil {
					return err
				}
				current, ok := board.Find(id)
				if !ok {
					return ticket.ErrNotFound
				}
				changed := ticket.NormalizeStatus(string(current.Status)) != status
				if err := board.Move(cmd.Context(), id, status); err != nil {
					return err
				}
				printMove(out, id, status, changed)
				return nil
			})
		},
	}
}

func printMove(out io.Writer, id string, status ticket.Status, changed bool) {
	if !changed {
		fmt.Fprintf(out, "%s is already %s\n", id, status)
		return
	}
	fmt.Fprintf(out, "Moved %s to %s\n", id, status.Title())
}

func renderTickets(tickets []*ticket.Ticket, colorize bool) string {
	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, []string{
			t.ID,
			priorityLabel(string(t.Priority), colorize),
			string(ticket.NormalizeStatus(string(t.Status))),
			orDash(t.Intake.Name()),
			orDash(t.Intake.Phone()),
			truncate(orDash(t.Intake.Issue()), 40),
			string(t.EmailStatus),
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Priority", "Status", "Caller", "Phone", "Issue", "E-mail", "Created"},
		rows,
		nil,
	)
}

func renderBoard(out io.Writer, columns []ticket.Column) {
	colorize := shouldColorize(out)
	for i, col := range columns {
		if i > 0 {
			fmt.Fprintln(out)
		}
		for _, line := range renderSectionHeader(fmt.Sprintf("%s (%d)", col.Title, len(col.Tickets)), colorize) {
			fmt.Fprintln(out, line)
		}
		if len(col.Tickets) == 0 {
			fmt.Fprintln(out, statusIndent+"(empty)")
			continue
		}
		fmt.Fprintln(out, renderTickets(col.Tickets, colorize))
	}
}
