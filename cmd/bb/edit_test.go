package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/beadboard/internal/debug"
	"github.com/steveyegge/beadboard/internal/types"
)

func editFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	addEditFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func ptr[T any](v T) *T { return &v }

func TestBuildPatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want types.IssueUpdate
	}{
		{
			name: "nothing set",
			want: types.IssueUpdate{},
		},
		{
			name: "severity and assignee",
			args: []string{"--severity", "3", "--assignee", "Bob"},
			want: types.IssueUpdate{Severity: ptr(3), Assignee: ptr("Bob")},
		},
		{
			name: "explicit empty values are kept",
			args: []string{"--assignee", "", "--description", ""},
			want: types.IssueUpdate{Assignee: ptr(""), Description: ptr("")},
		},
		{
			name: "status and priority are normalized",
			args: []string{"--status", "in_progress", "--priority", "HIGH"},
			want: types.IssueUpdate{Status: ptr(types.StatusInProgress), Priority: ptr(types.PriorityHigh)},
		},
		{
			name: "tags are trimmed",
			args: []string{"--tags", "auth, login,,", "--rank=-2"},
			want: types.IssueUpdate{Tags: []string{"auth", "login"}, UserDefinedRank: ptr(-2)},
		},
		{
			name: "clear flags",
			args: []string{"--clear-rank", "--clear-description"},
			want: types.IssueUpdate{ClearRank: true, ClearDescription: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPatch(editFlags(t, tt.args...))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("buildPatch() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildPatchRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"--status", "Blocked"},
		{"--priority", "urgent"},
		{"--title", ""},
		{"--rank", "3", "--clear-rank"},
		{"--description", "x", "--clear-description"},
	} {
		_, err := buildPatch(editFlags(t, args...))
		require.Error(t, err, "args %v", args)
	}
}

// captureStdout returns what fn writes to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	w.Close()
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestReportEditHonoursQuiet(t *testing.T) {
	issue := &types.Issue{ID: "7", Title: "Flaky test"}

	got := captureStdout(t, func() { reportEdit("7", issue, "updated") })
	require.Equal(t, "#7 updated\n", got)

	got = captureStdout(t, func() { reportEdit("7", nil, "moved to Done") })
	require.Equal(t, "#7 moved to Done, but it is no longer on the board\n", got)

	debug.SetQuiet(true)
	t.Cleanup(func() { debug.SetQuiet(false) })
	got = captureStdout(t, func() { reportEdit("7", issue, "updated") })
	require.Empty(t, got)
}
