package stages

import (
	"context"
	"path/filepath"
)

// CommandSubmitter runs the configured submitter command. It may write a JSON
// Submission to $DOCPILOT_RESULT_FILE.
type CommandSubmitter struct {
	Command string
}

func (s CommandSubmitter) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	resultPath, err := scratchFile(req.Layout, "submission.json")
	if err != nil {
		return Submission{}, err
	}
	env := append(baseEnv(req.RunID, req.Layout),
		EnvSourceRepo+"="+req.Config.Source.Repo,
		EnvGitRef+"="+req.Config.Source.GitRef,
		EnvResultFile+"="+resultPath,
	)
	if _, err := (shellCommand{
		command: s.Command,
		dir:     req.Layout.Dir(),
		env:     env,
		logPath: filepath.Join(req.Layout.LogsDir(), "submitter.log"),
	}).run(ctx); err != nil {
		return Submission{}, err
	}
	var submission Submission
	if _, err := readJSONFile(resultPath, &submission); err != nil {
		return Submission{}, err
	}
	return submission, nil
}
