package main

import (
	"bytes"
	"testing"
	"ttrac_backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRun_UsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no command", nil, 1, "Usage: maintenance"},
		{"unknown command", []string{"vacuum"}, 1, `unknown command "vacuum"`},
		{"bad output", []string{"dedupe", "--output", "json"}, 1, `unsupported --output "json"`},
		{"bad flag", []string{"dedupe", "--nope"}, 1, "unknown flag: --nope"},
		{"bad flag prints usage", []string{"dedupe", "--nope"}, 1, "Usage: maintenance"},
		{"bad flag value", []string{"purge-read", "--older-than", "soon"}, 1, "invalid argument"},
		{"help", []string{"--help"}, 0, "recompute-scores"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tc.code, run(tc.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), tc.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_ConfigErrorIsReported(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("STORAGE_TYPE", "minio")

	var stdout, stderr bytes.Buffer
	code := run([]string{"dedupe", "--config", dir + "/config.yaml"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "dedupe failed: load config")
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, &service.MaintenanceReport{
		Task: "dedupe", DryRun: true, Users: 2, Scanned: 10, Matched: 3, Elapsed: "12ms",
	}, "text")
	require.NoError(t, err)
	assert.Equal(t, "dedupe (dry run)\n  users:   2\n  scanned: 10\n  matched: 3\n  removed: 0\n  elapsed: 12ms\n", buf.String())

	buf.Reset()
	err = writeReport(&buf, &service.MaintenanceReport{
		Task:      "generate",
		Generated: &service.GenerateResult{Submissions: 4, Attempts: 1},
		Elapsed:   "1s",
	}, "text")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "submissions: 4")
	assert.NotContains(t, buf.String(), "scanned")
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	in := &service.MaintenanceReport{Task: "purge-read", Matched: 5, Removed: 5, Elapsed: "3ms"}
	require.NoError(t, writeReport(&buf, in, "yaml"))

	var out service.MaintenanceReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, *in, out)
	assert.Contains(t, buf.String(), "dry_run: false")
}
