//go:build cucumber
// +build cucumber

package cucumber

import (
	"context"

	"github.com/cucumber/godog"

	"docpilot/internal/budget"
	"docpilot/internal/changebudget"
	"docpilot/internal/gates"
	"docpilot/internal/golden"
	"docpilot/internal/runstate"
	"docpilot/internal/spec"
)

// featureState holds scenario state shared by the step definitions.
type featureState struct {
	issues         []gates.Issue
	fixAttempts    int
	maxFixAttempts int
	outcomes       []runstate.Outcome

	budgets    spec.Budgets
	tracker    *budget.Tracker
	budgetErr  error
	trackerErr error

	original     string
	modified     string
	changeBudget spec.ChangeBudgetConfig
	bundle       []changebudget.FileChange
	analyzeErr   error

	goldenSet    map[string]string
	candidateSet map[string]string
	verification golden.Verification
}

// InitializeScenario wires cucumber steps to the feature state.
func InitializeScenario(ctx *godog.ScenarioContext) {
	state := &featureState{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*state = featureState{}
		return ctx, nil
	})

	ctx.Step(`^a validation report with issues:$`, state.aValidationReportWithIssues)
	ctx.Step(`^(\d+) of (\d+) fix attempts used$`, state.fixAttemptsUsed)
	ctx.Step(`^the run decides after validation$`, state.theRunDecides)
	ctx.Step(`^the run decides after validation (\d+) times$`, state.theRunDecidesTimes)
	ctx.Step(`^the decision is "([^"]+)"$`, state.theDecisionIs)
	ctx.Step(`^the selected issue is "([^"]+)"$`, state.theSelectedIssueIs)
	ctx.Step(`^the fix attempt counter is (\d+)$`, state.theFixAttemptCounterIs)
	ctx.Step(`^every decision selected "([^"]+)"$`, state.everyDecisionSelected)

	ctx.Step(`^a budget tracker allowing (\d+) LLM calls$`, state.aTrackerAllowingCalls)
	ctx.Step(`^a budget tracker allowing (\d+) LLM tokens$`, state.aTrackerAllowingTokens)
	ctx.Step(`^(\d+) LLM calls? (?:is|are) recorded$`, state.llmCallsRecorded)
	ctx.Step(`^an LLM call using (\d+) input and (\d+) output tokens is recorded$`, state.llmCallWithTokensRecorded)
	ctx.Step(`^no budget is exceeded$`, state.noBudgetIsExceeded)
	ctx.Step(`^the "([^"]+)" budget is exceeded$`, state.theBudgetIsExceeded)
	ctx.Step(`^budgets without "([^"]+)"$`, state.budgetsWithout)
	ctx.Step(`^creating a budget tracker fails mentioning "([^"]+)"$`, state.creatingTrackerFails)

	ctx.Step(`^an original text "([^"]*)" and a modified text "([^"]*)"$`, state.originalAndModifiedText)
	ctx.Step(`^the change is formatting only$`, state.theChangeIsFormattingOnly)
	ctx.Step(`^the change is not formatting only$`, state.theChangeIsNotFormattingOnly)
	ctx.Step(`^a change budget of (\d+) lines per file and (\d+) files$`, state.aChangeBudget)
	ctx.Step(`^(\d+) files that each change (\d+) lines$`, state.filesThatEachChange)
	ctx.Step(`^the bundle is analyzed$`, state.theBundleIsAnalyzed)
	ctx.Step(`^the change budget is exceeded with (\d+) violations$`, state.theChangeBudgetIsExceededWith)

	ctx.Step(`^golden artifacts:$`, state.goldenArtifacts)
	ctx.Step(`^candidate artifacts:$`, state.candidateArtifacts)
	ctx.Step(`^the candidate is verified$`, state.theCandidateIsVerified)
	ctx.Step(`^"([^"]+)" is "([^"]+)"$`, state.artifactHasStatus)
	ctx.Step(`^there are (\d+) "([^"]+)" artifacts$`, state.thereAreArtifactsWithStatus)
	ctx.Step(`^verification did not pass$`, state.verificationDidNotPass)
	ctx.Step(`^verification passed$`, state.verificationPassed)
}
