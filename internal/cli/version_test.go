package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		info BuildInfo
		want string
	}{
		{"empty", BuildInfo{}, "dev (commit: unknown, built: unknown)"},
		{"release", BuildInfo{Version: "1.2.0", Commit: "abc1234", Date: "2026-01-02"}, "1.2.0 (commit: abc1234, built: 2026-01-02)"},
		{"version only", BuildInfo{Version: "1.2.0"}, "1.2.0 (commit: unknown, built: unknown)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, formatVersion(tc.info))
		})
	}
}

func withBuildInfo(t *testing.T, version, commit, date string) {
	t.Helper()
	orig := buildInfo
	t.Cleanup(func() { buildInfo = orig })
	SetBuildInfo(version, commit, date)
}

func TestVersionCommand(t *testing.T) {
	setupTestEnv(t)
	withBuildInfo(t, "0.3.1", "deadbee", "2026-10-01")

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, versionCmd.RunE(cmd, nil))
	assert.Equal(t, "idealink 0.3.1 (commit: deadbee, built: 2026-10-01)\n", stdout.String())
}

func TestVersionCommandJSON(t *testing.T) {
	setupTestEnv(t)
	withBuildInfo(t, "", "", "")

	cc := testCommandContext(t, nil)
	useJSON(cc)
	cmd, stdout, _ := newTestCmd(cc)
	require.NoError(t, versionCmd.RunE(cmd, nil))

	var got map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "dev", got["version"])
	assert.NotEmpty(t, got["go_version"])
	assert.NotEmpty(t, got["platform"])
}

func TestGetCurrentVersion(t *testing.T) {
	withBuildInfo(t, "", "", "")
	assert.Equal(t, "dev", GetCurrentVersion())

	SetBuildInfo("1.0.0", "", "")
	assert.Equal(t, "1.0.0", GetCurrentVersion())
}
