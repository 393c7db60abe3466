package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docpilot/internal/spec"
)

func validConfig() spec.Config {
	return spec.Config{
		Version:        1,
		Product:        "acme",
		OutputDir:      "./runs",
		MaxFixAttempts: 2,
		Profile:        spec.ProfileLocal,
		Budgets: spec.Budgets{
			MaxRuntimeSeconds: spec.Int64(60),
			MaxLLMCalls:       spec.Int64(3),
			MaxLLMTokens:      spec.Int64(1000),
			MaxFileWrites:     spec.Int64(10),
			MaxPatchAttempts:  spec.Int64(2),
		},
		ChangeBudget: spec.ChangeBudgetConfig{MaxLinesPerFile: 20, MaxFilesChanged: 3},
		Stages: []spec.StageConfig{
			{Name: "scout", Command: "true"},
		},
		Gates: []spec.GateConfig{{Name: "links"}},
	}
}

func issueFields(t *testing.T, err error) []string {
	t.Helper()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := make([]string, 0, len(validationErr.Issues))
	for _, issue := range validationErr.Issues {
		fields = append(fields, issue.Field)
	}
	return fields
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := Validate(&cfg, "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsEveryMissingBudget(t *testing.T) {
	cfg := validConfig()
	cfg.Budgets = spec.Budgets{MaxLLMCalls: spec.Int64(3)}

	fields := issueFields(t, Validate(&cfg, "."))
	want := []string{
		"budgets.max_runtime_s",
		"budgets.max_llm_tokens",
		"budgets.max_file_writes",
		"budgets.max_patch_attempts",
	}
	if strings.Join(fields, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestValidateCollectsAcrossSections(t *testing.T) {
	cfg := validConfig()
	cfg.Version = 2
	cfg.Product = ""
	cfg.Profile = "staging"
	cfg.Stages = append(cfg.Stages, spec.StageConfig{Name: "publish", Command: "x"}, spec.StageConfig{Name: "scout"})
	cfg.Gates = append(cfg.Gates, spec.GateConfig{Name: "spellcheck"})

	fields := issueFields(t, Validate(&cfg, "."))
	for _, want := range []string{"version", "product", "profile", "stages[1].name", "stages.name", "stages[2].command", "gates[1].name"} {
		found := false
		for _, field := range fields {
			if field == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected issue for %s, got %v", want, fields)
		}
	}
}

func TestValidateRejectsNonPositiveChangeBudget(t *testing.T) {
	cfg := validConfig()
	cfg.ChangeBudget = spec.ChangeBudgetConfig{}
	fields := issueFields(t, Validate(&cfg, "."))
	if len(fields) != 2 {
		t.Fatalf("expected two change budget issues, got %v", fields)
	}
}

func TestNormalizeDefaultsAndPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Profile = ""
	cfg.Source.Repo = "upstream"
	base := filepath.FromSlash("/srv/docs")

	Normalize(&cfg, base)

	if cfg.Profile != spec.ProfileLocal {
		t.Fatalf("expected local profile, got %q", cfg.Profile)
	}
	if cfg.Source.GitRef != "HEAD" {
		t.Fatalf("expected HEAD ref, got %q", cfg.Source.GitRef)
	}
	if cfg.OutputDir != filepath.Join(base, "runs") {
		t.Fatalf("unexpected output dir %q", cfg.OutputDir)
	}
	if cfg.GoldenDir != filepath.Join(base, "runs", DefaultGoldenDirName) {
		t.Fatalf("unexpected golden dir %q", cfg.GoldenDir)
	}
	if cfg.Source.Repo != filepath.Join(base, "upstream") {
		t.Fatalf("unexpected source repo %q", cfg.Source.Repo)
	}
}

func TestScaffoldProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	result, err := Scaffold(dir)
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	cfg, err := Load(result.ConfigPath)
	if err != nil {
		t.Fatalf("load scaffolded config: %v", err)
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.OutputDir)
	}
	if _, err := Scaffold(dir); err == nil {
		t.Fatalf("expected second scaffold to refuse overwrite")
	}
}

func TestFindConfigPathSearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := FindConfigPath(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != filepath.Join(root, ConfigFileName) {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestObjectStoreFromEnv(t *testing.T) {
	t.Setenv(EnvS3Endpoint, "localhost:9000")
	t.Setenv(EnvS3AccessKey, "key")
	t.Setenv(EnvS3SecretKey, "secret")
	t.Setenv(EnvS3UseSSL, "false")

	got, err := ObjectStoreFromEnv(spec.ObjectStoreConfig{Bucket: "golden", Prefix: "/docs/"})
	if err != nil {
		t.Fatalf("object store env: %v", err)
	}
	if got.Bucket != "golden" || got.UseSSL || got.Prefix != "docs" {
		t.Fatalf("unexpected settings: %+v", got)
	}

	t.Setenv(EnvS3UseSSL, "maybe")
	if _, err := ObjectStoreFromEnv(spec.ObjectStoreConfig{Bucket: "golden"}); err == nil {
		t.Fatalf("expected parse error for bad bool")
	}
}
