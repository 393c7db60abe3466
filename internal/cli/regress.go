package cli

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"docpilot/internal/golden"
)

func runRegress(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, false)
		runDir := flags.String("run", "", "Candidate run directory")
		goldenRun := flags.String("golden-run", "", "Reference run id (default: latest)")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		if *runDir == "" {
			fmt.Fprintln(stderr, "--run is required")
			return ExitUsage
		}
		env, code, ok := opts.resolve(false, stderr)
		if !ok {
			return code
		}
		report, code, ok := checkRegression(env, *runDir, *goldenRun, stderr)
		if !ok {
			return code
		}

		reportPath := filepath.Join(*runDir, golden.RegressionReportFileName)
		if err := golden.WriteRegressionReport(reportPath, report); err != nil {
			fmt.Fprintf(stderr, "Failed to write regression report: %v\n", err)
			return ExitError
		}
		if env.cfg.Warehouse.Path != "" {
			ctx, cancel := commandContext()
			id, err := recordRegression(ctx, env.cfg.Warehouse.Path, report)
			cancel()
			if err != nil {
				env.logger.Warn("warehouse ingest failed", "run_id", report.CandidateRunID, "error", err)
				fmt.Fprintf(stderr, "Warning: regression not recorded in warehouse: %v\n", err)
			} else {
				env.logger.Info("regression recorded", "regression_id", id)
			}
		}

		printRegression(stdout, report)
		fmt.Fprintf(stdout, "Report: %s\n", reportPath)
		if !report.Passed {
			return ExitFailed
		}
		return ExitOK
	}
}
