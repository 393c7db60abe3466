package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"docpilot/internal/gates/builtin"
	"docpilot/internal/runner"
	"docpilot/internal/spec"
	"docpilot/internal/stages"
	"docpilot/internal/ui/live"
	"docpilot/internal/vcs"
)

var (
	runPipeline    = runner.Run
	describeSource = vcs.DescribeOrLiteral
)

func runRun(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addCommonFlags(flags)
		uiMode := flags.String("ui", "auto", "Console UI mode (auto|live|plain)")
		profile := flags.String("profile", "", "Override the validation profile")
		outputDir := flags.String("output-dir", "", "Override the runs output directory")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}

		cfg, logger, code, ok := opts.setup(stderr)
		if !ok {
			return code
		}
		if *profile != "" {
			cfg.Profile = strings.ToLower(strings.TrimSpace(*profile))
		}
		if *outputDir != "" {
			cfg.OutputDir = *outputDir
		}

		decision, err := resolveUIMode(*uiMode, strings.EqualFold(opts.logLevel, "debug"), stdout)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}
		if decision.warning != "" {
			fmt.Fprintln(stderr, decision.warning)
		}

		deps, err := pipelineDeps(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to configure run: %v\n", err)
			return ExitError
		}

		ctx, cancel := commandContext()
		defer cancel()

		var controller *live.Controller
		if decision.useLive {
			controller = live.Start(stdout, live.Options{})
			deps.Observer = controller
		} else {
			deps.Observer = live.NewPlain(stdout)
		}

		source := describeSource(ctx, cfg.Source.Repo, cfg.Source.GitRef)
		result, err := runPipeline(ctx, runner.RunParams{Config: cfg, Source: source, Deps: deps})
		if controller != nil {
			controller.Close()
			controller.Wait()
		}
		if err != nil {
			fmt.Fprintf(stderr, "Run failed: %v\n", err)
			return ExitError
		}

		if cfg.Warehouse.Path != "" {
			if err := recordRun(ctx, cfg.Warehouse.Path, result); err != nil {
				logger.Warn("warehouse ingest failed", "run_id", result.RunID, "error", err)
				fmt.Fprintf(stderr, "Warning: run not recorded in warehouse: %v\n", err)
			}
		}

		fmt.Fprintf(stdout, "Run %s finished: %s\n", result.RunID, result.Snapshot.RunState)
		fmt.Fprintf(stdout, "Run dir: %s\n", result.RunDir)
		if result.Failed() {
			if failure := result.Snapshot.Failure; failure != nil {
				fmt.Fprintf(stdout, "Failure: %s", failure.Reason)
				if failure.Message != "" {
					fmt.Fprintf(stdout, ": %s", failure.Message)
				}
				fmt.Fprintln(stdout)
			}
			return ExitFailed
		}
		return ExitOK
	}
}

// pipelineDeps wires the configured commands and gates into run dependencies.
func pipelineDeps(cfg spec.Config, logger *slog.Logger) (runner.RunDependencies, error) {
	gateList, err := builtin.Build(cfg.Gates)
	if err != nil {
		return runner.RunDependencies{}, err
	}
	deps := runner.RunDependencies{
		Workers: stages.WorkersFromConfig(cfg),
		Gates:   gateList,
		Logger:  logger,
		Now:     now,
	}
	if cfg.Fixer.Command != "" {
		deps.Fixer = stages.CommandFixer{Command: cfg.Fixer.Command}
	}
	if cfg.Submitter.Command != "" {
		deps.Submitter = stages.CommandSubmitter{Command: cfg.Submitter.Command}
	}
	return deps, nil
}
