package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"argus/internal/api"
	"argus/internal/config"
	"argus/internal/records"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) apiAddr() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.APIBind
	}
	return "127.0.0.1:7817"
}

// dialClient returns a client for the daemon API, or nil when no daemon
// answers within the probe timeout.
func (c *commandContext) dialClient() *api.Client {
	client := api.NewClient(c.apiAddr())
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil
	}
	return client
}

// withStore runs fn against the daemon API when one is reachable, otherwise
// against a directly opened record store. Exactly one of client and store
// is non-nil.
func (c *commandContext) withStore(fn func(client *api.Client, store *records.Store) error) error {
	if client := c.dialClient(); client != nil {
		return fn(client, nil)
	}
	return c.withLocalStore(func(store *records.Store) error {
		return fn(nil, store)
	})
}

// withLocalStore always opens the record store directly. Maintenance
// commands use this because they have no daemon API surface.
func (c *commandContext) withLocalStore(fn func(store *records.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := records.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
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
