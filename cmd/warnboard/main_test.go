package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
  "name": "core",
  "builds": [
    {"number": 1, "label": "v1", "results": [
      {"toolId": "pmd", "toolName": "PMD", "newCount": 2, "totalCount": 2,
       "new": [{"severity": "HIGH"}, {"severity": "LOW"}]}
    ]},
    {"number": 2, "results": [
      {"toolId": "pmd", "toolName": "PMD", "fixedCount": 1, "totalCount": 1,
       "outstanding": [{"severity": "HIGH"}], "fixed": [{"severity": "LOW"}]}
    ]}
  ]
}`

const snapshotYAML = `
name: web
builds:
  - number: 7
    results:
      - toolId: eslint
        toolName: ESLint
        newCount: 5
        new:
          - severity: NORMAL
`

func setup(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	configPath = filepath.Join(dir, "warnboard.toml")
	content := fmt.Sprintf("version = 1\n\n[db]\npath = %q\n\n[ui]\nlog_file = %q\n",
		filepath.Join(dir, "history.db"), filepath.Join(dir, "tui.log"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return dir, configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSnapshot(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	_, cfg := setup(t)
	out, err := execute(t, "--config", cfg, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "warnboard version ")
}

func TestImportListAndTrend(t *testing.T) {
	dir, cfg := setup(t)
	jsonFile := writeSnapshot(t, dir, "core.json", snapshotJSON)
	yamlFile := writeSnapshot(t, dir, "web.yaml", snapshotYAML)

	out, err := execute(t, "-c", cfg, "import", "--no-progress", jsonFile, yamlFile)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 jobs (3 builds, 1 results with inconsistent counts)\n", out)

	out, err = execute(t, "-c", cfg, "jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `core\s+2\s+2`, out)
	assert.Regexp(t, `web\s+1\s+7`, out)

	out, err = execute(t, "-c", cfg, "jobs", "--where", "builds >= 2")
	require.NoError(t, err)
	assert.Contains(t, out, "core")
	assert.NotContains(t, out, "web")

	_, err = execute(t, "-c", cfg, "jobs", "--where", "size > 1")
	require.Error(t, err)

	out, err = execute(t, "-c", cfg, "trend", "core")
	require.NoError(t, err)
	assert.Equal(t, "Label\tPMD\n#1\t2\n#2\t1\n", out)

	out, err = execute(t, "-c", cfg, "trend", "core", "--new-vs-fixed", "--use-build-label", "--max-builds", "5")
	require.NoError(t, err)
	assert.Equal(t, "Label\tnew\tfixed\nv1\t2\t0\n#2\t0\t1\n", out)

	out, err = execute(t, "-c", cfg, "trend", "core", "--build", "2", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"xLabels":["PMD"],"series":[
		{"name":"outstanding","values":[1],"color":"#FFE082"},
		{"name":"new","values":[0],"color":"#EF9A9A"},
		{"name":"fixed","values":[1],"color":"#A5D6A7"}]}`, out)
}

func TestTrendOutputAndInject(t *testing.T) {
	dir, cfg := setup(t)
	_, err := execute(t, "-c", cfg, "import", "--no-progress", writeSnapshot(t, dir, "core.json", snapshotJSON))
	require.NoError(t, err)

	target := filepath.Join(dir, "out", "trend.md")
	_, err = execute(t, "-c", cfg, "trend", "core", "-f", "markdown", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| #2 | 1 |")

	readme := writeSnapshot(t, dir, "README.md", "# Core\n<!-- warnboard:quality:start -->\n<!-- warnboard:quality:end -->\n")
	out, err := execute(t, "-c", cfg, "trend", "core", "--new-vs-fixed", "--inject", readme, "--marker", "quality")
	require.NoError(t, err)
	assert.Contains(t, out, "updated")
	data, err = os.ReadFile(readme)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Build | new | fixed |")
}

func TestTrendErrors(t *testing.T) {
	dir, cfg := setup(t)
	_, err := execute(t, "-c", cfg, "import", "--no-progress", writeSnapshot(t, dir, "core.json", snapshotJSON))
	require.NoError(t, err)

	_, err = execute(t, "-c", cfg, "trend", "core", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = execute(t, "-c", cfg, "trend", "core", "--tool", "Checkstyle")
	assert.ErrorContains(t, err, "tool Checkstyle not found")

	_, err = execute(t, "-c", cfg, "trend", "missing")
	assert.ErrorContains(t, err, "job missing not found")

	_, err = execute(t, "-c", cfg, "trend", "core", "--max-builds=-1")
	assert.ErrorContains(t, err, "must not be negative")
}

func TestJobsDelete(t *testing.T) {
	dir, cfg := setup(t)
	_, err := execute(t, "-c", cfg, "import", "--no-progress", writeSnapshot(t, dir, "core.json", snapshotJSON))
	require.NoError(t, err)

	out, err := execute(t, "-c", cfg, "jobs", "delete", "core")
	require.NoError(t, err)
	assert.Equal(t, "deleted core\n", out)

	_, err = execute(t, "-c", cfg, "jobs", "delete", "core")
	assert.ErrorContains(t, err, "not found")
}

func TestImportRejectsBadFile(t *testing.T) {
	dir, cfg := setup(t)
	bad := writeSnapshot(t, dir, "bad.json", `{"builds": [`)
	_, err := execute(t, "-c", cfg, "import", "--no-progress", bad)
	require.Error(t, err)
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "version")
	require.Error(t, err)
}

func TestLoadConfig_DefaultPathFallsBack(t *testing.T) {
	cfg, fromFile, err := loadConfig(filepath.Join(t.TempDir(), "warnboard.toml"), false)
	require.NoError(t, err)
	assert.False(t, fromFile)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address)
}
