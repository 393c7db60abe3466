package cli

import (
	"flag"
	"fmt"
	"io"

	"docpilot/internal/config"
	"docpilot/internal/duckdb"
)

func runHistory(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addCommonFlags(flags)
		product := flags.String("product", "", "Product name (default: config product)")
		gitRef := flags.String("git-ref", "", "Only runs for this git ref")
		state := flags.String("state", "", "Only runs in this terminal state (DONE|FAILED)")
		limit := flags.Int("limit", 20, "Maximum rows")
		regressions := flags.Bool("regressions", false, "List regression checks instead of runs")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		cfg, _, code, ok := opts.setup(stderr)
		if !ok {
			return code
		}
		if cfg.Warehouse.Path == "" {
			fmt.Fprintln(stderr, "No warehouse configured (set warehouse.path in "+config.ConfigFileName+")")
			return ExitError
		}
		name := firstNonEmpty(*product, cfg.Product)

		ctx, cancel := commandContext()
		defer cancel()
		db, err := duckdb.Open(ctx, cfg.Warehouse.Path)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open warehouse: %v\n", err)
			return ExitError
		}
		defer db.Close()

		if *regressions {
			rows, err := duckdb.ListRegressions(ctx, db, name, *limit)
			if err != nil {
				fmt.Fprintf(stderr, "History failed: %v\n", err)
				return ExitError
			}
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No regression checks recorded")
				return ExitOK
			}
			for _, row := range rows {
				verdict := "pass"
				if !row.Passed {
					verdict = "REGRESSION"
				}
				fmt.Fprintf(stdout, "%-40s %-10s golden=%s mismatch=%d missing=%d unexpected=%d\n",
					row.CandidateRunID, verdict, row.GoldenRunID, row.ContentMismatch, row.Missing, row.Unexpected)
			}
			return ExitOK
		}

		rows, err := duckdb.ListRuns(ctx, db, duckdb.RunFilter{Product: name, GitRef: *gitRef, State: *state, Limit: *limit})
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		if len(rows) == 0 {
			fmt.Fprintln(stdout, "No runs recorded")
			return ExitOK
		}
		for _, row := range rows {
			line := fmt.Sprintf("%-40s %-7s fixes=%d events=%d", row.RunID, row.RunState, row.FixAttempts, row.Events)
			if row.FailureReason != "" {
				line += " reason=" + row.FailureReason
			}
			fmt.Fprintln(stdout, line)
		}
		return ExitOK
	}
}
