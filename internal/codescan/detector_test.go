package codescan

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/internal/textnorm"
)

const sample = `function add(a, b) {
  if (a > b) {
    return a;
  }

  for (let i = 0; i < b; i++) {
    a++;
  }
  return a + b;
}
`

func newDetector(t *testing.T) *Detector {
	t.Helper()
	rules, err := config.DefaultRules()
	require.NoError(t, err)
	d, err := New(rules.Code, nil)
	require.NoError(t, err)
	return d
}

func lines(t *testing.T, s string) *textnorm.Text {
	t.Helper()
	text, err := textnorm.NormalizeLines(s)
	require.NoError(t, err)
	return text
}

func TestDetectDensity(t *testing.T) {
	d := newDetector(t)
	out, err := d.Detect(context.Background(), lines(t, sample))
	require.NoError(t, err)

	// 3 matches over 9 non-blank lines, weight 20
	assert.InDelta(t, 3.0/9.0*20, out.Score, 1e-9)
	names := make([]string, 0, len(out.Signals))
	for _, s := range out.Signals {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"code_for", "code_function", "code_if"}, names)
	assert.Empty(t, out.Sections)
}

func TestDetectCapsAt100(t *testing.T) {
	d := newDetector(t)
	out, err := d.Detect(context.Background(), lines(t, strings.Repeat("if(a){", 8)))
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.Score)
}

func TestDetectProseScoresZero(t *testing.T) {
	d := newDetector(t)
	out, err := d.Detect(context.Background(), lines(t, "The loop runs until the lesson ends.\nNothing here is code."))
	require.NoError(t, err)
	assert.Zero(t, out.Score)
	assert.Empty(t, out.Signals)
}

func TestDetectCancelled(t *testing.T) {
	d := newDetector(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Detect(ctx, lines(t, sample))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadPattern(t *testing.T) {
	_, err := New(config.CodeRules{Patterns: map[string]string{"bad": "if\\s*("}}, nil)
	assert.ErrorContains(t, err, "code pattern bad")
}
