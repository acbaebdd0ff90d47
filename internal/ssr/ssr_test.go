package ssr_test

import (
	"bytes"
	"github.com/myrjola/resqlink/internal/ssr"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestReplaceCustomElements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "status badge",
			input: `<status-badge value="Active"></status-badge>`,
			want:  `<span class="badge badge-status badge-status-active">Active</span>`,
		},
		{
			name:  "urgency badge keeps its content",
			input: `<urgency-badge value="High">Urgent</urgency-badge>`,
			want:  `<span class="badge badge-urgency badge-urgency-high">Urgent</span>`,
		},
		{
			name:  "reliability badge high",
			input: `<reliability-badge value="88"></reliability-badge>`,
			want:  `<span class="badge badge-reliability badge-reliability-high">88%</span>`,
		},
		{
			name:  "reliability badge medium",
			input: `<reliability-badge value="65"></reliability-badge>`,
			want:  `<span class="badge badge-reliability badge-reliability-medium">65%</span>`,
		},
		{
			name:  "reliability badge low",
			input: `<reliability-badge value="12"></reliability-badge>`,
			want:  `<span class="badge badge-reliability badge-reliability-low">12%</span>`,
		},
		{
			name:  "reliability badge not a number",
			input: `<reliability-badge value="n/a"></reliability-badge>`,
			want:  `<span class="badge badge-reliability badge-reliability-unknown">n/a</span>`,
		},
		{
			name:  "empty status",
			input: `<status-badge></status-badge>`,
			want:  `<span class="badge badge-status badge-status-unknown"></span>`,
		},
		{
			name:  "primary button element",
			input: `<button-primary type="submit">Save</button-primary>`,
			want:  `<button type="submit" class="btn btn-primary">Save</button>`,
		},
		{
			name:  "primary button through as",
			input: `<a href="/refresh" as="button-primary">Refresh</a>`,
			want:  `<a href="/refresh" class="btn btn-primary">Refresh</a>`,
		},
		{
			name:  "nested badges",
			input: `<div id="c1"><status-badge value="Pending"></status-badge> <urgency-badge value="Low"></urgency-badge></div>`,
			want: `<div id="c1"><span class="badge badge-status badge-status-pending">Pending</span> ` +
				`<span class="badge badge-urgency badge-urgency-low">Low</span></div>`,
		},
		{
			name:  "escapes values",
			input: `<status-badge value="&lt;b&gt;"></status-badge>`,
			want:  `<span class="badge badge-status badge-status-&lt;b&gt;">&lt;b&gt;</span>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := ssr.ReplaceCustomElements(&buf, strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	input := `<!DOCTYPE html><html lang="en"><head><title>Overview</title></head>` +
		`<body><main><status-badge value="Solved"></status-badge></main></body></html>`

	err := ssr.RenderPage(&buf, strings.NewReader(input))
	require.NoError(t, err)

	got := buf.String()
	require.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"), got)
	require.Contains(t, got, `<title>Overview</title>`)
	require.Contains(t, got, `<span class="badge badge-status badge-status-solved">Solved</span>`)
	require.NotContains(t, got, "status-badge")
}
