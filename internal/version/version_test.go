package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildInfo(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	SetBuildInfo(version, commit, date)
	t.Cleanup(func() { SetBuildInfo(origVersion, origCommit, origDate) })
}

func TestDefaultVersionIsValid(t *testing.T) {
	assert.NoError(t, ValidateVersion())
	assert.Equal(t, Version, GetVersion())
}

func TestGetFormattedVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		commit   string
		date     string
		expected string
	}{
		{
			name:     "development build",
			version:  "0.3.0",
			commit:   "unknown",
			date:     "unknown",
			expected: "tswnano v0.3.0",
		},
		{
			name:     "release build",
			version:  "0.3.1",
			commit:   "abc1234def5678",
			date:     "2026-01-02",
			expected: "tswnano v0.3.1, commit abc1234, built 2026-01-02",
		},
		{
			name:     "invalid version",
			version:  "not-a-version",
			commit:   "unknown",
			date:     "unknown",
			expected: "tswnano vnot-a-version (invalid version)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildInfo(t, tt.version, tt.commit, tt.date)
			assert.Equal(t, tt.expected, GetFormattedVersion())
		})
	}
}

func TestGetDetailedVersion(t *testing.T) {
	withBuildInfo(t, "0.3.0+42.abc", "abc", "2026-01-02")

	detailed := GetDetailedVersion()
	assert.True(t, strings.HasPrefix(detailed, "tswnano v0.3.0+42.abc\n"))
	assert.Contains(t, detailed, "Build Metadata: 42.abc")
	assert.Contains(t, detailed, "Platform: ")
}

func TestIsPrerelease(t *testing.T) {
	withBuildInfo(t, "0.4.0-rc.1", "unknown", "unknown")
	assert.True(t, IsPrerelease())

	SetBuildInfo("0.4.0", "unknown", "unknown")
	assert.False(t, IsPrerelease())
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2   string
		expected int
		wantErr  bool
	}{
		{v1: "0.2.0", v2: "0.3.0", expected: -1},
		{v1: "0.3.0", v2: "0.3.0", expected: 0},
		{v1: "1.0.0", v2: "0.9.9", expected: 1},
		{v1: "bad", v2: "0.1.0", wantErr: true},
		{v1: "0.1.0", v2: "bad", wantErr: true},
	}

	for _, tt := range tests {
		got, err := CompareVersions(tt.v1, tt.v2)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "%s vs %s", tt.v1, tt.v2)
	}
}

func TestSatisfies(t *testing.T) {
	withBuildInfo(t, "0.3.0", "unknown", "unknown")

	tests := []struct {
		constraint string
		expected   bool
		wantErr    bool
	}{
		{constraint: "", expected: true},
		{constraint: ">= 0.2", expected: true},
		{constraint: "^0.3.0", expected: true},
		{constraint: ">= 1.0", expected: false},
		{constraint: "not a constraint", wantErr: true},
	}

	for _, tt := range tests {
		got, err := Satisfies(tt.constraint)
		if tt.wantErr {
			assert.Error(t, err, tt.constraint)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, tt.constraint)
	}
}
