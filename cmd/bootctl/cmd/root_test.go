package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/bootstrap/cmd/bootctl/cmd"
)

func TestRootCommand(t *testing.T) {
	rootCmd := cmd.NewRootCommand()
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "bootctl", rootCmd.Use)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})
	err := rootCmd.Execute()
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "discover, order and run bootstrap modules")
	for _, sub := range []string{"plan", "run", "config", "version"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, cmd.PrintVersion(), "bootctl v")

	buf := new(bytes.Buffer)
	versionCmd := cmd.NewVersionCommand()
	versionCmd.SetOut(buf)
	versionCmd.SetArgs(nil)
	require.NoError(t, versionCmd.Execute())
	assert.Equal(t, cmd.PrintVersion()+"\n", buf.String())
}

func TestConfigSample(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "config", "sample")
		require.NoError(t, err)

		var sample map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &sample))
		assert.Contains(t, sample, "startup_module")
		assert.Contains(t, out, "background_jobs: true")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "config", "sample", "-f", "json")
		require.NoError(t, err)
		var sample map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &sample))
		assert.Equal(t, ":8089", sample["status"].(map[string]any)["addr"])
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := execute(t, "config", "sample", "--format", "ini")
		assert.Error(t, err)
	})
}

// workspace writes a bootctl config and a plug-in folder:
//
//	app -> db, plus the plug-in "audit" which depends on db.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	plugins := filepath.Join(dir, "plugins")
	require.NoError(t, os.MkdirAll(plugins, 0o755))

	writeTestFile(t, filepath.Join(plugins, "core.yaml"), `
name: core
modules:
  - name: db
    type: logging
    settings:
      message: connecting
  - name: app
    type: noop
    depends_on: [db]
`)
	writeTestFile(t, filepath.Join(plugins, "audit.hcl"), `
module "audit" {
  type       = "heartbeat"
  depends_on = ["db"]
  settings   = { interval = "1h" }
}
`)

	cfg := filepath.Join(dir, "bootctl.yaml")
	writeTestFile(t, cfg, "startup_module: app\nplugins:\n  folders: ["+plugins+"]\nkernel:\n  background_jobs: false\n")
	return cfg
}

func TestPlanText(t *testing.T) {
	cfg := workspace(t)
	out, err := execute(t, "plan", "-c", cfg)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"#", "MODULE", "PLUGIN", "DEPENDS", "ON"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "kernel", "false"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "db", "false"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"2", "audit", "true", "db"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"3", "app", "false", "db"}, strings.Fields(lines[4]))
}

func TestPlanJSON(t *testing.T) {
	cfg := workspace(t)
	out, err := execute(t, "plan", "-c", cfg, "-o", "json")
	require.NoError(t, err)

	var rows []struct {
		Position     int      `json:"position"`
		Name         string   `json:"name"`
		PlugIn       bool     `json:"plugin"`
		Dependencies []string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "kernel", rows[0].Name)
	assert.Equal(t, "app", rows[3].Name)
	assert.True(t, rows[2].PlugIn)
	assert.Equal(t, []string{"db"}, rows[3].Dependencies)
}

func TestPlanStartupOverride(t *testing.T) {
	cfg := workspace(t)
	out, err := execute(t, "plan", "-c", cfg, "--startup", "audit", "-o", "json")
	require.NoError(t, err)

	var rows []struct {
		Name   string `json:"name"`
		PlugIn bool   `json:"plugin"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)

	var got []string
	for _, r := range rows {
		got = append(got, r.Name)
	}
	assert.Equal(t, []string{"kernel", "db", "app", "audit"}, got)
	// app is outside the closure of audit, so it joins as a plug-in.
	assert.True(t, rows[2].PlugIn)
	assert.False(t, rows[3].PlugIn)
}

func TestPlanStartupDependency(t *testing.T) {
	_, err := execute(t, "plan", "-c", workspace(t), "-s", "db")
	assert.ErrorContains(t, err, `depends on "db"`)
}

func TestPlanErrors(t *testing.T) {
	t.Run("missing startup module", func(t *testing.T) {
		cfg := filepath.Join(t.TempDir(), "empty.yaml")
		writeTestFile(t, cfg, "plugins:\n  folders: []\n")
		_, err := execute(t, "plan", "-c", cfg)
		assert.ErrorContains(t, err, "StartupModule")
	})

	t.Run("unknown startup module", func(t *testing.T) {
		_, err := execute(t, "plan", "-c", workspace(t), "-s", "ghost")
		assert.ErrorContains(t, err, "ghost")
	})

	t.Run("unknown output", func(t *testing.T) {
		_, err := execute(t, "plan", "-c", workspace(t), "-o", "xml")
		assert.ErrorContains(t, err, "xml")
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := execute(t, "plan", "-c", workspace(t), "--log-level", "loud")
		assert.ErrorContains(t, err, "loud")
	})

	t.Run("unsupported config file", func(t *testing.T) {
		_, err := execute(t, "plan", "-c", "bootctl.ini")
		assert.Error(t, err)
	})
}

func TestRunUntilCancelled(t *testing.T) {
	cfg := workspace(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd := cmd.NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs([]string{"run", "-c", cfg, "--log-level", "debug"})
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	logs := stderr.String()
	assert.Contains(t, logs, "Bootstrap completed")
	assert.Contains(t, logs, "message=connecting")
	assert.Contains(t, logs, "module=db")
	assert.Contains(t, logs, "Shutting down modules")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := cmd.NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
