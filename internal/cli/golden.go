package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"docpilot/internal/config"
	"docpilot/internal/golden"
	"docpilot/internal/objectstore"
	"docpilot/internal/rundir"
	"docpilot/internal/runner"
	"docpilot/internal/runstate"
	"docpilot/internal/spec"
)

// newRemoteStore connects the golden mirror; tests swap in a memory store.
var newRemoteStore = func(env config.ObjectStoreEnv) (objectstore.Store, error) {
	return objectstore.NewMinio(objectstore.Config{
		Endpoint:  env.Endpoint,
		AccessKey: env.AccessKey,
		SecretKey: env.SecretKey,
		Region:    env.Region,
		UseSSL:    env.UseSSL,
		Bucket:    env.Bucket,
	})
}

var goldenCommands = []*Command{
	command("capture", "Accept a finished run as the golden reference", []string{
		"docpilot golden capture --run <run-dir> [--force] [--golden-dir <dir>]",
	}, runGoldenCapture),
	command("verify", "Compare a run with its golden reference", []string{
		"docpilot golden verify --run <run-dir> [--golden-run <run-id>] [--golden-dir <dir>]",
	}, runGoldenVerify),
	command("list", "List stored golden runs", []string{
		"docpilot golden list [--product <name>] [--git-ref <ref>] [--golden-dir <dir>]",
	}, runGoldenList),
	command("delete", "Delete a stored golden run", []string{
		"docpilot golden delete --run-id <run-id> [--product <name>] [--git-ref <ref>]",
	}, runGoldenDelete),
	command("publish", "Upload a golden run to the object store", []string{
		"docpilot golden publish --run-id <run-id> [--product <name>] [--git-ref <ref>]",
	}, runGoldenPublish),
	command("fetch", "Download a golden run from the object store", []string{
		"docpilot golden fetch [--run-id <run-id>] [--product <name>] [--git-ref <ref>]",
	}, runGoldenFetch),
}

func runGolden(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if len(args) == 0 || isHelpArg(args[0]) {
			printCommandUsage(cmd, stdout)
			if len(args) == 0 {
				return ExitUsage
			}
			return ExitOK
		}
		sub := findCommand(goldenCommands, args[0])
		if sub == nil {
			fmt.Fprintf(stderr, "Unknown golden command: %s\n\n", args[0])
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		return sub.Run(args[1:], stdout, stderr)
	}
}

// goldenOptions holds the flags shared by golden subcommands.
type goldenOptions struct {
	common    *commonOptions
	goldenDir string
	product   string
	gitRef    string
}

func addGoldenFlags(flags *flag.FlagSet, withKey bool) *goldenOptions {
	opts := &goldenOptions{common: addCommonFlags(flags)}
	flags.StringVar(&opts.goldenDir, "golden-dir", "", "Golden store directory (default: config golden_dir)")
	if withKey {
		flags.StringVar(&opts.product, "product", "", "Product name (default: config product)")
		flags.StringVar(&opts.gitRef, "git-ref", "", "Git ref (default: config source.git_ref)")
	}
	return opts
}

// goldenEnv is the resolved store plus the config it came from, if any.
type goldenEnv struct {
	cfg    spec.Config
	store  *golden.Store
	key    golden.Key
	logger *slog.Logger
}

// resolve loads config unless every value it would supply was given as a flag.
func (o *goldenOptions) resolve(needKey bool, stderr io.Writer) (goldenEnv, int, bool) {
	logger, err := o.common.logger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid logging flags: %v\n", err)
		return goldenEnv{}, ExitUsage, false
	}
	env := goldenEnv{logger: logger}
	needConfig := o.goldenDir == "" || (needKey && (o.product == "" || o.gitRef == ""))
	if needConfig {
		cfg, err := o.common.load()
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config:\n%v\n", err)
			return goldenEnv{}, ExitError, false
		}
		env.cfg = cfg
	}
	dir := o.goldenDir
	if dir == "" {
		dir = env.cfg.GoldenDir
	}
	env.store = golden.NewStore(dir)
	env.key = golden.Key{Product: firstNonEmpty(o.product, env.cfg.Product), GitRef: firstNonEmpty(o.gitRef, env.cfg.Source.GitRef)}
	if needKey {
		if err := env.key.Validate(); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return goldenEnv{}, ExitUsage, false
		}
	}
	return env, ExitOK, true
}

func (e goldenEnv) mirror() (*golden.Mirror, error) {
	storeEnv, err := config.ObjectStoreFromEnv(e.cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	remote, err := newRemoteStore(storeEnv)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}
	return &golden.Mirror{Local: e.store, Remote: remote, Prefix: storeEnv.Prefix}, nil
}

func runGoldenCapture(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, false)
		runDir := flags.String("run", "", "Run directory to capture")
		force := flags.Bool("force", false, "Capture even if the run did not finish DONE")
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
		summary, layout, err := loadRunSummary(*runDir)
		if err != nil {
			fmt.Fprintf(stderr, "Capture failed: %v\n", err)
			return ExitError
		}
		if summary.RunState != runstate.Done && !*force {
			fmt.Fprintf(stderr, "Capture refused: run %s is %s, not %s (use --force)\n", summary.RunID, summary.RunState, runstate.Done)
			return ExitError
		}
		meta, err := golden.Capture(golden.CaptureRequest{
			RunDir:  layout.Dir(),
			RunID:   summary.RunID,
			Product: summary.Product,
			GitRef:  summary.GitRef,
			Roots:   golden.DefaultRoots,
		}, now())
		if err != nil {
			fmt.Fprintf(stderr, "Capture failed: %v\n", err)
			return ExitError
		}
		path, err := env.store.Save(meta)
		if err != nil {
			fmt.Fprintf(stderr, "Capture failed: %v\n", err)
			return ExitError
		}
		env.logger.Info("golden run captured", "run_id", meta.RunID, "product", meta.ProductName, "git_ref", meta.GitRef, "artifacts", len(meta.Artifacts))
		fmt.Fprintf(stdout, "Captured %s (%d artifact(s)) to %s\n", meta.RunID, len(meta.Artifacts), path)
		return ExitOK
	}
}

func runGoldenVerify(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
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
		printRegression(stdout, report)
		if !report.Passed {
			return ExitFailed
		}
		return ExitOK
	}
}

func runGoldenList(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, true)
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		env, code, ok := opts.resolve(false, stderr)
		if !ok {
			return code
		}
		var (
			runs []golden.Metadata
			err  error
		)
		if opts.product != "" && opts.gitRef != "" {
			runs, err = env.store.List(golden.Key{Product: opts.product, GitRef: opts.gitRef})
		} else {
			runs, err = env.store.ListAll()
		}
		if err != nil {
			fmt.Fprintf(stderr, "List failed: %v\n", err)
			return ExitError
		}
		if len(runs) == 0 {
			fmt.Fprintln(stdout, "No golden runs")
			return ExitOK
		}
		for _, meta := range runs {
			if opts.product != "" && meta.ProductName != opts.product {
				continue
			}
			fmt.Fprintf(stdout, "%s@%s %s %d artifact(s) captured %s\n",
				meta.ProductName, meta.GitRef, meta.RunID, len(meta.Artifacts), meta.CapturedAt.Format("2006-01-02T15:04:05Z"))
		}
		return ExitOK
	}
}

func runGoldenDelete(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, true)
		runID := flags.String("run-id", "", "Golden run id to delete")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		if *runID == "" {
			fmt.Fprintln(stderr, "--run-id is required")
			return ExitUsage
		}
		env, code, ok := opts.resolve(true, stderr)
		if !ok {
			return code
		}
		if err := env.store.Delete(env.key, *runID); err != nil {
			fmt.Fprintf(stderr, "Delete failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Deleted %s@%s %s\n", env.key.Product, env.key.GitRef, *runID)
		return ExitOK
	}
}

func runGoldenPublish(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, true)
		runID := flags.String("run-id", "", "Golden run id to publish")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		if *runID == "" {
			fmt.Fprintln(stderr, "--run-id is required")
			return ExitUsage
		}
		env, code, ok := opts.resolve(true, stderr)
		if !ok {
			return code
		}
		mirror, err := env.mirror()
		if err != nil {
			fmt.Fprintf(stderr, "Publish failed: %v\n", err)
			return ExitError
		}
		ctx, cancel := commandContext()
		defer cancel()
		objectKey, err := mirror.Publish(ctx, env.key, *runID)
		if err != nil {
			fmt.Fprintf(stderr, "Publish failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Published %s to %s\n", *runID, objectKey)
		return ExitOK
	}
}

func runGoldenFetch(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		flags := flag.NewFlagSet("golden "+cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		opts := addGoldenFlags(flags, true)
		runID := flags.String("run-id", "", "Golden run id to fetch (default: latest published)")
		if code, ok := parseFlags(cmd, flags, args, false, stdout, stderr); !ok {
			return code
		}
		env, code, ok := opts.resolve(true, stderr)
		if !ok {
			return code
		}
		mirror, err := env.mirror()
		if err != nil {
			fmt.Fprintf(stderr, "Fetch failed: %v\n", err)
			return ExitError
		}
		ctx, cancel := commandContext()
		defer cancel()
		meta, err := mirror.Fetch(ctx, env.key, *runID)
		if err != nil {
			fmt.Fprintf(stderr, "Fetch failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Fetched %s@%s %s (%d artifact(s))\n", meta.ProductName, meta.GitRef, meta.RunID, len(meta.Artifacts))
		return ExitOK
	}
}

// checkRegression verifies runDir against the golden store using the key
// recorded in the run's summary.
func checkRegression(env goldenEnv, runDir, goldenRunID string, stderr io.Writer) (golden.RegressionReport, int, bool) {
	summary, layout, err := loadRunSummary(runDir)
	if err != nil {
		fmt.Fprintf(stderr, "Regression check failed: %v\n", err)
		return golden.RegressionReport{}, ExitError, false
	}
	checker := &golden.Checker{Store: env.store, Roots: golden.DefaultRoots, Now: now, Logger: env.logger}
	report, err := checker.Check(golden.RegressionRequest{
		RunDir:         layout.Dir(),
		CandidateRunID: summary.RunID,
		Product:        summary.Product,
		GitRef:         summary.GitRef,
		GoldenRunID:    goldenRunID,
	})
	if err != nil {
		if errors.Is(err, golden.ErrGoldenRunNotFound) {
			fmt.Fprintf(stderr, "No golden run: %v\n", err)
			return golden.RegressionReport{}, ExitError, false
		}
		fmt.Fprintf(stderr, "Regression check failed: %v\n", err)
		return golden.RegressionReport{}, ExitError, false
	}
	return report, ExitOK, true
}

func printRegression(w io.Writer, report golden.RegressionReport) {
	verdict := "PASS"
	if !report.Passed {
		verdict = "REGRESSION"
	}
	fmt.Fprintf(w, "%s: %s vs golden %s (%s@%s)\n", verdict, report.CandidateRunID, report.GoldenRunID, report.Product, report.GitRef)
	for _, group := range []struct {
		label string
		paths []string
	}{
		{"content mismatch", report.ContentMismatch},
		{"missing", report.Missing},
		{"unexpected", report.Unexpected},
	} {
		if len(group.paths) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", group.label, strings.Join(group.paths, ", "))
	}
}

func loadRunSummary(runDir string) (runner.Summary, rundir.Layout, error) {
	layout, err := rundir.Open(runDir)
	if err != nil {
		return runner.Summary{}, rundir.Layout{}, err
	}
	summary, err := runner.ReadSummary(layout.SummaryPath())
	if err != nil {
		return runner.Summary{}, rundir.Layout{}, fmt.Errorf("read run summary: %w", err)
	}
	return summary, layout, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
