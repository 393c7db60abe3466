package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"docpilot/internal/config"
	"docpilot/internal/gates"
	"docpilot/internal/gates/builtin"
	"docpilot/internal/rundir"
	"docpilot/internal/spec"
)

func runGates(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addCommonFlags(flags)
		runDir := flags.String("run", "", "Run directory to validate")
		profileName := flags.String("profile", "", "Validation profile (default: config profile)")
		outPath := flags.String("out", "", "Write the validation report to this path")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}

		if *runDir == "" {
			return listGates(opts, stdout, stderr)
		}

		cfg, logger, code, ok := opts.setup(stderr)
		if !ok {
			return code
		}
		name := cfg.Profile
		if *profileName != "" {
			name = *profileName
		}
		profile, err := gates.ProfileFor(name)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}
		layout, err := rundir.Open(*runDir)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open run: %v\n", err)
			return ExitError
		}
		gateList, err := builtin.Build(cfg.Gates)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to build gates: %v\n", err)
			return ExitError
		}

		ctx, cancel := commandContext()
		defer cancel()
		aggregator := gates.NewAggregator(gateList, gates.AggregatorOptions{Now: now, Logger: logger})
		report := aggregator.Run(ctx, layout.RunID, layout.Dir(), profile)
		if *outPath != "" {
			if err := gates.WriteReport(*outPath, report); err != nil {
				fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
				return ExitError
			}
		}

		for _, outcome := range report.Gates {
			status := "pass"
			if !outcome.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(stdout, "%-12s %-4s %d issue(s)\n", outcome.Name, status, outcome.IssueCount)
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(stdout, "  %s %s\n", issue.IssueID, issue.String())
		}
		if report.HasBlockers() {
			fmt.Fprintf(stdout, "Blocked: %d blocker issue(s)\n", len(report.Blockers()))
			return ExitFailed
		}
		fmt.Fprintln(stdout, "No blockers")
		return ExitOK
	}
}

// listGates prints the built-in gates and, when a config is found, which of
// them are enabled and in what order.
func listGates(opts *commonOptions, stdout, stderr io.Writer) int {
	var enabled []spec.GateConfig
	if opts.configPath != "" {
		cfg, err := opts.load()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config:\n%v\n", err)
			return ExitError
		}
		enabled = cfg.Gates
	} else if path, err := config.FindConfigPath(""); err == nil {
		if cfg, err := config.Load(path); err == nil {
			enabled = cfg.Gates
		}
	}

	fmt.Fprintf(stdout, "Built-in gates: %s\n", strings.Join(builtin.Names(), ", "))
	if len(enabled) == 0 {
		return ExitOK
	}
	fmt.Fprintln(stdout, "Enabled (in order):")
	for i, gate := range enabled {
		fmt.Fprintf(stdout, "  %d. %s\n", i+1, gate.Name)
	}
	return ExitOK
}
