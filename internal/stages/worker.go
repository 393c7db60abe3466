package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docpilot/internal/spec"
)

// CommandWorker runs a configured stage command. The command may write a
// JSON Result to $DOCPILOT_RESULT_FILE; without one, a zero exit means the
// stage completed with its declared outputs.
type CommandWorker struct {
	Stage spec.StageConfig
}

func (w CommandWorker) Run(ctx context.Context, req Request) (Result, error) {
	resultPath, err := scratchFile(req.Layout, req.Stage+".result.json")
	if err != nil {
		return Result{}, err
	}
	env := append(baseEnv(req.RunID, req.Layout),
		EnvStage+"="+req.Stage,
		EnvSourceRepo+"="+req.Config.Source.Repo,
		EnvGitRef+"="+req.Config.Source.GitRef,
		EnvUpstream+"="+strings.Join(req.Upstream, "\n"),
		EnvResultFile+"="+resultPath,
	)
	code, runErr := shellCommand{
		command: w.Stage.Command,
		dir:     req.Layout.Dir(),
		env:     env,
		logPath: filepath.Join(req.Layout.LogsDir(), req.Stage+".log"),
	}.run(ctx)
	if code == ExitNotReady {
		return NotReady(fmt.Sprintf("%s exited with status %d", req.Stage, ExitNotReady)), nil
	}
	if runErr != nil {
		return Result{}, runErr
	}

	var result Result
	found, err := readJSONFile(resultPath, &result)
	if err != nil {
		return Result{}, err
	}
	if !found {
		result = Completed(nil, Usage{})
	}
	switch result.Status {
	case StatusNotReady:
		return result, nil
	case StatusCompleted, "":
		result.Status = StatusCompleted
	default:
		return Result{}, fmt.Errorf("stage %s reported unknown status %q", req.Stage, result.Status)
	}
	result.Outputs = mergeOutputs(w.Stage.Outputs, result.Outputs)
	for _, output := range result.Outputs {
		if _, err := os.Stat(filepath.Join(req.Layout.ArtifactsDir(), filepath.FromSlash(output))); err != nil {
			return Result{}, fmt.Errorf("stage %s did not produce declared output %s", req.Stage, output)
		}
	}
	return result, nil
}

// mergeOutputs keeps declared outputs first, then any extra reported ones.
func mergeOutputs(declared, reported []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{declared, reported} {
		for _, output := range list {
			if seen[output] {
				continue
			}
			seen[output] = true
			out = append(out, output)
		}
	}
	return out
}

// MissingWorker stands in for a stage without a configured command.
func MissingWorker(stage string) Worker {
	return WorkerFunc(func(context.Context, Request) (Result, error) {
		return NotReady(fmt.Sprintf("no command configured for stage %s", stage)), nil
	})
}

// WorkersFromConfig builds one worker per pipeline stage.
func WorkersFromConfig(cfg spec.Config) map[string]Worker {
	workers := make(map[string]Worker, len(spec.PipelineStages))
	for _, name := range spec.PipelineStages {
		if stage, ok := cfg.StageCommand(name); ok {
			workers[name] = CommandWorker{Stage: stage}
			continue
		}
		workers[name] = MissingWorker(name)
	}
	return workers
}
