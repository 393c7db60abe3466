package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"docpilot/internal/config"
	"docpilot/internal/runner"
)

func runBatch(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		if code, ok := parseFlags(cmd, flags, args, true, stdout, stderr); !ok {
			return code
		}
		if flags.NArg() == 0 {
			fmt.Fprintln(stderr, "batch expects at least one config path")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		params := make([]runner.RunParams, 0, flags.NArg())
		for _, path := range flags.Args() {
			cfg, err := config.Load(path)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to load config %s:\n%v\n", path, err)
				return ExitError
			}
			params = append(params, runner.RunParams{Config: cfg})
		}

		if _, err := runner.RunBatch(context.Background(), params); err != nil {
			if errors.Is(err, runner.ErrBatchNotImplemented) {
				fmt.Fprintf(stderr, "docpilot batch: %v\n", err)
				return ExitNotImplemented
			}
			fmt.Fprintf(stderr, "Batch failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
