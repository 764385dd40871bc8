package main

import (
	"strings"

	"github.com/spf13/cobra"

	"airdesk/internal/api"
	"airdesk/internal/store"
	"airdesk/internal/voice"
)

func newVoiceCommand(ctx *commandContext) *cobra.Command {
	voiceCmd := &cobra.Command{
		Use:   "voice",
		Short: "Hosted voice-agent helpers",
	}
	voiceCmd.AddCommand(&cobra.Command{
		Use:   "payload",
		Short: "Print the voice-agent payload built from the firm's settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				settings, _, err := ctx.firmSettings(cmd.Context(), st)
				if err != nil {
					return err
				}
				payload, err := voice.BuildAgent(settings).Payload()
				if err != nil {
					return err
				}
				resp := api.VoiceAgentResponse{Assistant: payload}
				if strings.TrimSpace(cfg.Voice.AppURL) != "" {
					hooks, err := voice.WebhookURLs(cfg.Voice.AppURL)
					if err != nil {
						return err
					}
					resp.Webhooks = &hooks
				}
				return writeJSON(cmd, resp)
			})
		},
	})
	return voiceCmd
}
