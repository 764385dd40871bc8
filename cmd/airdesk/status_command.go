package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/api"
	"airdesk/internal/deps"
	"airdesk/internal/preflight"
	"airdesk/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, database, and workflow status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(out, line)
			}
			health, err := client.Health(cmd.Context())
			var statusErr *api.StatusError
			switch {
			case api.IsUnavailable(err):
				fmt.Fprintln(out, renderStatusLine("AirDesk daemon", statusError, "Not running ("+cfg.Paths.APIBind+")", colorize))
			case errors.As(err, &statusErr):
				fmt.Fprintln(out, renderStatusLine("AirDesk daemon", statusWarn, fmt.Sprintf("Degraded (HTTP %d)", statusErr.StatusCode), colorize))
			case err != nil:
				return err
			default:
				fmt.Fprintln(out, renderStatusLine("AirDesk daemon", statusOK, "Running", colorize))
				fmt.Fprintln(out, renderStatusLine("Database", healthKind(health.Database), health.Database, colorize))
				fmt.Fprintln(out, renderStatusLine("Sessions", healthKind(health.Sessions), health.Sessions, colorize))
				for _, stage := range health.Workflow.StageHealth {
					kind, detail := statusOK, "Ready"
					switch {
					case !stage.Ready:
						kind, detail = statusError, orDash(stage.Detail)
					case stage.State == "degraded":
						kind, detail = statusWarn, "Degraded: "+orDash(stage.Detail)
					}
					fmt.Fprintln(out, renderStatusLine("Stage "+stage.Name, kind, detail, colorize))
				}
				for _, lane := range health.Workflow.Lanes {
					fmt.Fprintln(out, renderStatusLine("Lane "+lane.Name, statusInfo,
						fmt.Sprintf("%d waiting, %d in flight", lane.Waiting, lane.InFlight), colorize))
				}
				if health.Workflow.LastError != "" {
					fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, health.Workflow.LastError, colorize))
				}
			}
			for _, dir := range []struct{ label, path string }{
				{"Data directory", cfg.Paths.DataDir},
				{"Log directory", cfg.Paths.LogDir},
			} {
				result := preflight.CheckDirectoryAccess(dir.label, dir.path)
				fmt.Fprintln(out, renderStatusLine(dir.label, resultKind(result), result.Detail, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Integrations", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, status := range preflight.CheckIntegrations(cfg) {
				fmt.Fprintln(out, renderIntegration(status, colorize))
			}
			if probe {
				for _, result := range []preflight.Result{
					preflight.CheckResendFromConfig(cmd.Context(), cfg),
					preflight.CheckLLMFromConfig(cmd.Context(), cfg),
				} {
					fmt.Fprintln(out, renderStatusLine(result.Name+" probe", resultKind(result), result.Detail, colorize))
				}
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Calls", colorize) {
				fmt.Fprintln(out, line)
			}
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.CallStats(cmd.Context())
				if err != nil {
					return err
				}
				statuses := store.AllCallStatuses()
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					rows = append(rows, []string{string(status), fmt.Sprint(stats[status])})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Also verify Resend and LLM credentials over the network")
	return cmd
}

func renderIntegration(status deps.Status, colorize bool) string {
	switch {
	case status.Available:
		return renderStatusLine(status.Name, statusOK, "Configured", colorize)
	case status.Optional:
		return renderStatusLine(status.Name, statusInfo, "Off ("+status.Detail+")", colorize)
	default:
		return renderStatusLine(status.Name, statusError, status.Detail+"; "+strings.ToLower(status.Description), colorize)
	}
}

func resultKind(result preflight.Result) statusKind {
	if result.Passed {
		return statusOK
	}
	return statusError
}

func healthKind(value string) statusKind {
	if value == "ok" {
		return statusOK
	}
	return statusError
}

