package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"airdesk/internal/api"
	"airdesk/internal/config"
	"airdesk/internal/firm"
	"airdesk/internal/store"
)

const defaultFirmID = "default"

type commandContext struct {
	configFlag *string
	firmFlag   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, firmFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		firmFlag:   firmFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) firmID() string {
	if c.firmFlag != nil {
		if id := strings.TrimSpace(*c.firmFlag); id != "" {
			return id
		}
	}
	if id := strings.TrimSpace(os.Getenv("AIRDESK_FIRM_ID")); id != "" {
		return id
	}
	return defaultFirmID
}

// withStore opens the SQLite store for the duration of fn.
func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

// apiClient returns a client for the configured daemon. The client is nil
// when paths.api_bind is empty.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken, c.firmID())
}

// firmSettings returns the stored settings for the selected firm, or defaults
// when the firm has not saved any.
func (c *commandContext) firmSettings(ctx context.Context, st *store.Store) (firm.Settings, bool, error) {
	id := c.firmID()
	settings, found, err := st.GetFirmSettings(ctx, id)
	if err != nil {
		return firm.Settings{}, false, err
	}
	if !found {
		settings = firm.Defaults(id)
	}
	return settings, found, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
