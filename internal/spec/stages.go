package spec

// Worker stage names in execution order. Each stage consumes the artifacts of
// the stages before it.
const (
	StageScout   = "scout"
	StageExtract = "extract"
	StageDraft   = "draft"
)

// PipelineStages lists the worker stages in their fixed order.
var PipelineStages = []string{StageScout, StageExtract, StageDraft}

// Validation profiles.
const (
	ProfileLocal = "local"
	ProfileCI    = "ci"
	ProfileProd  = "prod"
)

// StageCommand returns the configured command for a stage, if any.
func (c Config) StageCommand(name string) (StageConfig, bool) {
	for _, stage := range c.Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return StageConfig{}, false
}
