package main

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/myrjola/resqlink/internal/metrics"
	"github.com/myrjola/resqlink/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func Test_inspect(t *testing.T) {
	_, apiURL := testhelpers.StartBackend(t)
	t.Setenv("RESQ_API_BASE_URL", apiURL)

	out, err := execute(t, "snapshot", "--json=false")
	require.NoError(t, err)
	require.Contains(t, out, "Cases: 3 total")
	require.Contains(t, out, "#2 Michael Chen")

	out, err = execute(t, "snapshot", "--json=true")
	require.NoError(t, err)
	var m metrics.Metrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Equal(t, 3, m.Cases.Total)
	require.Equal(t, 1, m.Tips.Unverified)

	out, err = execute(t, "rank", "--limit=2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "Michael Chen")
	require.Contains(t, lines[2], "Sarah Johnson")
}

func Test_ops(t *testing.T) {
	backend, apiURL := testhelpers.StartBackend(t)
	t.Setenv("RESQ_API_BASE_URL", apiURL)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "case status", args: []string{"case-status", "1", "Active"}, want: "Case #1 marked Active."},
		{name: "not allowed transition", args: []string{"case-status", "3", "Pending"}, wantErr: "not allowed"},
		{name: "bad id", args: []string{"verify-tip", "first"}, wantErr: "positive integer"},
		{name: "verify tip", args: []string{"verify-tip", "1"}, want: "Tip #1 verified."},
		{name: "already verified", args: []string{"verify-tip", "2"}, wantErr: "already verified"},
		{
			name: "review redemption",
			args: []string{"review-redemption", "1", "Approved"},
			want: "Redemption #1 Approved.",
		},
		{
			name: "review report",
			args: []string{"review-report", "1", "Accepted"},
			want: "Sighting report #1 Accepted.",
		},
		{
			name: "award points",
			args: []string{"award", "2", "25", "--mode=add"},
			want: "Points added successfully! New score: 100",
		},
		{
			name: "set points",
			args: []string{"award", "2", "10", "--mode=set"},
			want: "Points set successfully! New score: 10",
		},
		{name: "invalid points", args: []string{"award", "2", "lots", "--mode=add"}, wantErr: "finite number"},
		{name: "invalid mode", args: []string{"award", "2", "5", "--mode=multiply"}, wantErr: "add or set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Contains(t, out, tt.want)
		})
	}

	t.Run("failed write is reported", func(t *testing.T) {
		backend.FailWrites(true)
		t.Cleanup(func() { backend.FailWrites(false) })
		_, err := execute(t, "case-status", "2", "Solved")
		require.ErrorContains(t, err, "rolled back")
	})
}

func Test_unreachableBackend(t *testing.T) {
	t.Setenv("RESQ_API_BASE_URL", "http://127.0.0.1:1/api")
	t.Setenv("RESQ_REQUEST_TIMEOUT", "500ms")
	_, err := execute(t, "rank", "--limit=0")
	require.ErrorContains(t, err, "no collection could be read")
}

func Test_askDisabled(t *testing.T) {
	_, apiURL := testhelpers.StartBackend(t)
	t.Setenv("RESQ_API_BASE_URL", apiURL)
	t.Setenv("OPENAI_API_KEY", "")
	_, err := execute(t, "ask", "which", "case", "is", "most", "urgent?")
	require.ErrorContains(t, err, "assistant is not configured")
}
