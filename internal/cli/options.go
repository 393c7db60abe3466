package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"docpilot/internal/config"
	"docpilot/internal/logging"
	"docpilot/internal/spec"
)

// now is replaced in tests.
var now = time.Now

// commonOptions holds the flags shared by config-driven commands.
type commonOptions struct {
	configPath string
	logFormat  string
	logLevel   string
}

func addCommonFlags(flags *flag.FlagSet) *commonOptions {
	opts := &commonOptions{}
	flags.StringVar(&opts.configPath, "config", "", "Path to "+config.ConfigFileName+" (default: search upward from the working directory)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text|json)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	return opts
}

func (o *commonOptions) logger(stderr io.Writer) (*slog.Logger, error) {
	return logging.New(stderr, logging.Options{Format: o.logFormat, Level: o.logLevel})
}

// resolveConfigPath normalizes a config path or finds it from CWD.
func (o *commonOptions) resolveConfigPath() (string, error) {
	if strings.TrimSpace(o.configPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(o.configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

func (o *commonOptions) load() (spec.Config, error) {
	path, err := o.resolveConfigPath()
	if err != nil {
		return spec.Config{}, err
	}
	return config.Load(path)
}

// setup loads config and builds the logger, reporting failures on stderr.
func (o *commonOptions) setup(stderr io.Writer) (spec.Config, *slog.Logger, int, bool) {
	logger, err := o.logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid logging flags: %v\n", err)
		return spec.Config{}, nil, ExitUsage, false
	}
	cfg, err := o.load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config:\n%v\n", err)
		return spec.Config{}, nil, ExitError, false
	}
	return cfg, logger, ExitOK, true
}

func commandContext() (context.Context, context.CancelFunc) {
	return signalContext(context.Background())
}
