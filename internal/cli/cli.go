package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ExitOK = 0
	// ExitError reports an invocation that could not complete.
	ExitError = 1
	// ExitFailed reports a run that ended FAILED or a detected regression.
	ExitFailed = 2
	// ExitNotImplemented reports a command boundary that exists but has no
	// implementation.
	ExitNotImplemented = 3
	ExitUsage          = 64
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(commands, args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdout, stderr)
}

func findCommand(table []*Command, name string) *Command {
	for _, cmd := range table {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  docpilot <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"docpilot <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

// parseFlags parses args and rejects positional arguments unless allowArgs
// is set. ok is false when the caller should return code.
func parseFlags(cmd *Command, flags *flag.FlagSet, args []string, allowArgs bool, stdout, stderr io.Writer) (code int, ok bool) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printCommandUsage(cmd, stdout)
			return ExitOK, false
		}
		fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	if !allowArgs && flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	return ExitOK, true
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("init", "Scaffold docpilot.yml", []string{
		"docpilot init [--dir <path>]",
	}, runInit),
	command("validate", "Validate docpilot.yml", []string{
		"docpilot validate [--config <path>]",
	}, runValidate),
	command("run", "Execute one pipeline run", []string{
		"docpilot run [--config <path>] [--ui auto|live|plain] [--profile local|ci|prod] [--output-dir <dir>]",
	}, runRun),
	command("replay", "Rebuild a run snapshot from its event log", []string{
		"docpilot replay [--rebuild] <run-dir>",
	}, runReplay),
	command("gates", "List gates or run them against a run directory", []string{
		"docpilot gates [--config <path>]",
		"docpilot gates --run <run-dir> [--config <path>] [--profile <name>] [--out <path>]",
	}, runGates),
	command("golden", "Manage golden runs", []string{
		"docpilot golden capture --run <run-dir> [--force]",
		"docpilot golden verify --run <run-dir> [--golden-run <run-id>]",
		"docpilot golden list [--product <name>] [--git-ref <ref>]",
		"docpilot golden delete --run-id <run-id> [--product <name>] [--git-ref <ref>]",
		"docpilot golden publish --run-id <run-id> [--product <name>] [--git-ref <ref>]",
		"docpilot golden fetch [--run-id <run-id>] [--product <name>] [--git-ref <ref>]",
	}, runGolden),
	command("regress", "Check a run against its golden reference", []string{
		"docpilot regress --run <run-dir> [--golden-run <run-id>] [--config <path>]",
	}, runRegress),
	command("batch", "Execute several runs concurrently", []string{
		"docpilot batch <config>...",
	}, runBatch),
	command("history", "List recorded runs from the warehouse", []string{
		"docpilot history [--product <name>] [--state <state>] [--limit <n>] [--regressions]",
	}, runHistory),
}
