package problem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/warren/pkg/dcop"
)

const validYAML = `
version: "1.0"
name: two-vars
variables:
  - name: x
    domain: [0, 1]
  - name: y
    domain: [0, 1]
    agent: shared
constraints:
  - name: cxy
    scope: [x, y]
    default: 0
    entries:
      - values: [0, 1]
        cost: 1
      - values: [1, 0]
        cost: 1
`

func TestParseValidProblem(t *testing.T) {
	p, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "two-vars", p.Name)
	require.Len(t, p.Variables, 2)
	assert.Equal(t, []dcop.Value{0, 1}, p.Domain("x"))
	assert.Equal(t, "shared", p.Owners()["y"])

	require.Len(t, p.Spaces, 1)
	cost, err := p.Spaces[0].Eval(map[string]dcop.Value{"x": 0, "y": 1})
	require.NoError(t, err)
	assert.Equal(t, dcop.Cost(1), cost)
	cost, err = p.Spaces[0].Eval(map[string]dcop.Value{"x": 1, "y": 1})
	require.NoError(t, err)
	assert.Equal(t, dcop.Cost(0), cost, "unlisted tuples take the default cost")
}

func TestParseDefaultsApply(t *testing.T) {
	p, err := Parse([]byte(`
version: "1.0"
variables:
  - name: a
    domain: [0, 1]
constraints:
  - scope: [a]
    default: 4
`))
	require.NoError(t, err)
	cost, err := p.Spaces[0].Eval(map[string]dcop.Value{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, dcop.Cost(4), cost)
	// Unnamed constraints get generated names.
	assert.Equal(t, "c1", p.Spaces[0].Name)
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing version",
			yaml:    "variables:\n  - name: x\n    domain: [0]\n",
			wantErr: "unsupported version",
		},
		{
			name:    "maximization",
			yaml:    "version: \"1.0\"\nmaximize: true\nvariables:\n  - name: x\n    domain: [0]\n",
			wantErr: "maximization",
		},
		{
			name:    "no variables",
			yaml:    "version: \"1.0\"\n",
			wantErr: "no variables",
		},
		{
			name:    "duplicate variable",
			yaml:    "version: \"1.0\"\nvariables:\n  - name: x\n    domain: [0]\n  - name: x\n    domain: [0]\n",
			wantErr: "duplicate variable",
		},
		{
			name:    "empty domain",
			yaml:    "version: \"1.0\"\nvariables:\n  - name: x\n    domain: []\n",
			wantErr: "empty domain",
		},
		{
			name: "negative default cost",
			yaml: `
version: "1.0"
variables:
  - name: x
    domain: [0]
constraints:
  - scope: [x]
    default: -1
`,
			wantErr: "negative cost",
		},
		{
			name: "negative entry cost",
			yaml: `
version: "1.0"
variables:
  - name: x
    domain: [0]
constraints:
  - scope: [x]
    entries:
      - values: [0]
        cost: -2
`,
			wantErr: "negative cost",
		},
		{
			name: "unknown scope variable",
			yaml: `
version: "1.0"
variables:
  - name: x
    domain: [0]
constraints:
  - scope: [ghost]
`,
			wantErr: "unknown variable",
		},
		{
			name: "entry arity mismatch",
			yaml: `
version: "1.0"
variables:
  - name: x
    domain: [0]
constraints:
  - scope: [x]
    entries:
      - values: [0, 1]
        cost: 1
`,
			wantErr: "entry has",
		},
		{
			name: "entry value out of domain",
			yaml: `
version: "1.0"
variables:
  - name: x
    domain: [0, 1]
constraints:
  - scope: [x]
    entries:
      - values: [5]
        cost: 1
`,
			wantErr: "not in the domain",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.yml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "two-vars", p.Name)

	_, err = Load(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}
