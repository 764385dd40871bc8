package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"airdesk/internal/firm"
	"airdesk/internal/store"
)

func newFirmCommand(ctx *commandContext) *cobra.Command {
	firmCmd := &cobra.Command{
		Use:   "firm",
		Short: "Manage firm settings",
	}
	firmCmd.AddCommand(newFirmShowCommand(ctx))
	firmCmd.AddCommand(newFirmSetCommand(ctx))
	return firmCmd
}

func newFirmShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the firm's settings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				settings, _, err := ctx.firmSettings(cmd.Context(), st)
				if err != nil {
					return err
				}
				return writeJSON(cmd, settings)
			})
		},
	}
}

// newFirmSetCommand updates only the settings whose flags were given.
func newFirmSetCommand(ctx *commandContext) *cobra.Command {
	var (
		name           string
		emails         string
		timezone       string
		open           string
		closeTime      string
		agent          string
		greeting       string
		knowledge      string
		nextAvailable  string
		serviceFee     float64
		sendIncomplete bool
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update firm settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return ctx.withStore(func(st *store.Store) error {
				settings, _, err := ctx.firmSettings(cmd.Context(), st)
				if err != nil {
					return err
				}
				if flags.Changed("name") {
					settings.FirmName = name
				}
				if flags.Changed("emails") {
					settings.NotifyEmails = firm.ParseEmails(emails)
				}
				if flags.Changed("timezone") {
					settings.Timezone = timezone
				}
				if flags.Changed("open") {
					settings.BusinessHoursOpen = open
				}
				if flags.Changed("close") {
					settings.BusinessHoursClose = closeTime
				}
				if flags.Changed("agent") {
					settings.AgentName = agent
				}
				if flags.Changed("greeting") {
					settings.AIGreeting = greeting
				}
				if flags.Changed("knowledge") {
					settings.KnowledgeBase = knowledge
				}
				if flags.Changed("next-available") {
					settings.DefaultNextAvailable = nextAvailable
				}
				if flags.Changed("service-fee") {
					settings.ServiceFee = serviceFee
					settings.ServiceFeeEnabled = serviceFee > 0
				}
				if flags.Changed("send-incomplete") {
					settings.SendIncomplete = sendIncomplete
				}

				if err := st.SaveFirmSettings(cmd.Context(), &settings); err != nil {
					var validation *firm.ValidationError
					if errors.As(err, &validation) {
						return fmt.Errorf("settings not saved: %w", err)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved settings for %s (%s)\n", settings.FirmName, settings.FirmID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "Business name")
	flags.StringVar(&emails, "emails", "", "Comma separated dispatch e-mail addresses")
	flags.StringVar(&timezone, "timezone", "", "IANA timezone, e.g. America/Chicago")
	flags.StringVar(&open, "open", "", "Business hours open time (HH:MM)")
	flags.StringVar(&closeTime, "close", "", "Business hours close time (HH:MM)")
	flags.StringVar(&agent, "agent", "", "Voice agent name")
	flags.StringVar(&greeting, "greeting", "", "Custom greeting")
	flags.StringVar(&knowledge, "knowledge", "", "Knowledge base text for the voice agent")
	flags.StringVar(&nextAvailable, "next-available", "", "Default next available appointment")
	flags.Float64Var(&serviceFee, "service-fee", 0, "Service call fee in dollars (0 disables)")
	flags.BoolVar(&sendIncomplete, "send-incomplete", false, "E-mail tickets missing caller details")
	return cmd
}
