package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"docpilot/internal/runner"
)

func runReplay(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		rebuild := flags.Bool("rebuild", false, "Overwrite snapshot.json with the replayed state")
		if code, ok := parseFlags(cmd, flags, args, true, stdout, stderr); !ok {
			return code
		}
		if flags.NArg() != 1 {
			fmt.Fprintln(stderr, "replay expects exactly one run directory")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		runDir := flags.Arg(0)

		replay := runner.Replay
		if *rebuild {
			replay = runner.Rebuild
		}
		result, err := replay(runDir)
		if err != nil {
			fmt.Fprintf(stderr, "Replay failed: %v\n", err)
			return ExitError
		}
		if result.Warning != nil {
			fmt.Fprintf(stderr, "Warning: %v\n", result.Warning)
		}

		fmt.Fprintf(stdout, "Run %s: %s after %d event(s)\n", result.Rebuilt.RunID, result.Rebuilt.RunState, result.Events)
		switch {
		case *rebuild:
			fmt.Fprintln(stdout, "Snapshot rebuilt")
		case result.Persisted == nil:
			fmt.Fprintln(stdout, "No persisted snapshot")
			return ExitFailed
		case len(result.Drift) > 0:
			fmt.Fprintf(stdout, "Snapshot drift: %s\n", strings.Join(result.Drift, ", "))
			return ExitFailed
		default:
			fmt.Fprintln(stdout, "Snapshot consistent")
		}
		return ExitOK
	}
}
