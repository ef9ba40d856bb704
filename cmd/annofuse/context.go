package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"annofuse/internal/config"
	"annofuse/internal/logging"
	"annofuse/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
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
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
			}
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

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) logger() (*slog.Logger, error) {
	return logging.NewFromConfig(c.configValue())
}

// runBatch executes op through a workflow runner and prints the outcome.
// SIGINT and SIGTERM cancel the run, which the ledger records as interrupted.
func (c *commandContext) runBatch(cmd *cobra.Command, spec workflow.Spec, op workflow.Operation, render func(*cobra.Command, any)) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var opts []workflow.RunnerOption
	if !c.jsonOutput() && shouldColorize(cmd.ErrOrStderr()) {
		opts = append(opts, workflow.WithProgress(newBarProgress(cmd.ErrOrStderr())))
	}
	outcome, runErr := workflow.NewRunner(cfg, logger, opts...).Run(signalCtx, spec, op)
	if outcome == nil {
		return runErr
	}
	if c.jsonOutput() {
		if err := writeJSON(cmd, outcome); err != nil {
			return err
		}
		return runErr
	}
	printOutcome(cmd, outcome, render)
	return runErr
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// pickDir returns the flag value, falling back to the configured directory.
func pickDir(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return config.ExpandPath(value)
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
