package spec

// Config is the immutable input for one pipeline run.
type Config struct {
	Version        int                `yaml:"version"`
	Product        string             `yaml:"product"`
	Source         SourceConfig       `yaml:"source"`
	OutputDir      string             `yaml:"output_dir"`
	GoldenDir      string             `yaml:"golden_dir"`
	MaxFixAttempts int                `yaml:"max_fix_attempts"`
	Profile        string             `yaml:"profile"`
	Budgets        Budgets            `yaml:"budgets"`
	ChangeBudget   ChangeBudgetConfig `yaml:"change_budget"`
	Stages         []StageConfig      `yaml:"stages"`
	Fixer          CommandConfig      `yaml:"fixer"`
	Submitter      CommandConfig      `yaml:"submitter"`
	Gates          []GateConfig       `yaml:"gates"`
	Warehouse      WarehouseConfig    `yaml:"warehouse"`
	ObjectStore    ObjectStoreConfig  `yaml:"object_store"`
}

type SourceConfig struct {
	Repo   string `yaml:"repo"`
	GitRef string `yaml:"git_ref"`
}

// Budgets holds the run resource thresholds. Every field is required; nil
// means the key was absent from the config.
type Budgets struct {
	MaxRuntimeSeconds *int64 `yaml:"max_runtime_s" json:"max_runtime_s"`
	MaxLLMCalls       *int64 `yaml:"max_llm_calls" json:"max_llm_calls"`
	MaxLLMTokens      *int64 `yaml:"max_llm_tokens" json:"max_llm_tokens"`
	MaxFileWrites     *int64 `yaml:"max_file_writes" json:"max_file_writes"`
	MaxPatchAttempts  *int64 `yaml:"max_patch_attempts" json:"max_patch_attempts"`
}

type ChangeBudgetConfig struct {
	MaxLinesPerFile      int  `yaml:"max_lines_per_file" json:"max_lines_per_file"`
	MaxFilesChanged      int  `yaml:"max_files_changed" json:"max_files_changed"`
	RejectFormattingOnly bool `yaml:"reject_formatting_only" json:"reject_formatting_only"`
}

// StageConfig binds a worker stage to an external command.
type StageConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Outputs []string `yaml:"outputs"`
}

type CommandConfig struct {
	Command string `yaml:"command"`
}

// GateConfig enables a built-in gate. Order in the config is execution order.
type GateConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

type WarehouseConfig struct {
	Path string `yaml:"path"`
}

type ObjectStoreConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Int64 returns a pointer to v, for building Budgets in code.
func Int64(v int64) *int64 {
	return &v
}
