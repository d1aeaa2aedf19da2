package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	// config validate works even if file exists
	out, _, err := runCLI(t, []string{"config", "validate"}, env.cfg.Paths.APIBind, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	// config init to temp location
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if !strings.Contains(string(content), "[paths]") {
		t.Fatalf("sample config missing [paths] section: %q", string(content))
	}

	// a second init without --overwrite refuses to clobber the file
	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.cfg.Paths.APIBind, env.configPath)
	if err == nil {
		t.Fatal("expected error when config already exists")
	}
	requireContains(t, err.Error(), "already exists")

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.cfg.Paths.APIBind, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.StagingDir)
	requireContains(t, out, "[analysis]")
}
