// Package problem loads DCOP instances from YAML problem files and lowers
// them onto the pkg/dcop model. Validation is strict: anything the solver
// cannot faithfully handle is rejected at parse time.
package problem

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/warren/pkg/dcop"
)

// File is the top-level problem-file structure.
type File struct {
	Version     string       `yaml:"version"`
	Name        string       `yaml:"name,omitempty"`
	Maximize    bool         `yaml:"maximize,omitempty"` // rejected; warren minimises
	Variables   []Variable   `yaml:"variables"`
	Constraints []Constraint `yaml:"constraints,omitempty"`
}

// Variable declares one variable.
type Variable struct {
	Name   string  `yaml:"name"`
	Domain []int64 `yaml:"domain"`
	Agent  string  `yaml:"agent,omitempty"` // defaults to one agent per variable
}

// Constraint is an extensional cost table: a default cost plus explicit
// entries for the tuples that differ from it.
type Constraint struct {
	Name    string  `yaml:"name,omitempty"`
	Scope   []string `yaml:"scope"`
	Default int64   `yaml:"default,omitempty"`
	Entries []Entry `yaml:"entries,omitempty"`
}

// Entry pins the cost of one tuple, values in scope order.
type Entry struct {
	Values []int64 `yaml:"values"`
	Cost   int64   `yaml:"cost"`
}

// Load reads and parses a problem file.
func Load(path string) (*dcop.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	return Parse(data)
}

// Parse parses problem-file bytes into a validated dcop.Problem.
func Parse(data []byte) (*dcop.Problem, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse problem file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.lower()
}

// Validate performs strict validation on the file before lowering.
func (f *File) Validate() error {
	if f.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", f.Version)
	}
	if f.Maximize {
		return fmt.Errorf("unsupported: maximization problem (warren solves minimization DCOPs only)")
	}
	if len(f.Variables) == 0 {
		return fmt.Errorf("no variables defined")
	}

	vars := make(map[string][]int64, len(f.Variables))
	for _, v := range f.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable with empty name")
		}
		if _, dup := vars[v.Name]; dup {
			return fmt.Errorf("duplicate variable %q", v.Name)
		}
		if len(v.Domain) == 0 {
			return fmt.Errorf("variable %q has an empty domain", v.Name)
		}
		vars[v.Name] = v.Domain
	}

	for i, c := range f.Constraints {
		label := c.Name
		if label == "" {
			label = fmt.Sprintf("constraint #%d", i+1)
		}
		if len(c.Scope) == 0 {
			return fmt.Errorf("%s: empty scope", label)
		}
		if c.Default < 0 {
			return fmt.Errorf("unsupported: negative cost detected in %s (default %d)", label, c.Default)
		}
		for _, name := range c.Scope {
			if _, ok := vars[name]; !ok {
				return fmt.Errorf("%s: unknown variable %q in scope", label, name)
			}
		}
		for _, e := range c.Entries {
			if len(e.Values) != len(c.Scope) {
				return fmt.Errorf("%s: entry has %d values for a scope of %d", label, len(e.Values), len(c.Scope))
			}
			if e.Cost < 0 {
				return fmt.Errorf("unsupported: negative cost detected in %s", label)
			}
			for j, val := range e.Values {
				if !contains(vars[c.Scope[j]], val) {
					return fmt.Errorf("%s: value %d not in the domain of %s", label, val, c.Scope[j])
				}
			}
		}
	}

	return nil
}

// lower converts the validated file into the solver's problem model,
// materialising each constraint into a full cost table.
func (f *File) lower() (*dcop.Problem, error) {
	p := &dcop.Problem{Name: f.Name}

	domains := make(map[string][]dcop.Value, len(f.Variables))
	for _, v := range f.Variables {
		domain := make([]dcop.Value, len(v.Domain))
		for i, d := range v.Domain {
			domain[i] = dcop.Value(d)
		}
		domains[v.Name] = domain
		p.Variables = append(p.Variables, dcop.VariableDef{
			Name:   v.Name,
			Domain: domain,
			Agent:  v.Agent,
		})
	}

	for i, c := range f.Constraints {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("c%d", i+1)
		}

		scopeDomains := make([][]dcop.Value, len(c.Scope))
		size := 1
		for j, sv := range c.Scope {
			scopeDomains[j] = domains[sv]
			size *= len(scopeDomains[j])
		}

		costs := make([]dcop.Cost, size)
		for j := range costs {
			costs[j] = dcop.Cost(c.Default)
		}
		space, err := dcop.NewSpace(name, c.Scope, scopeDomains, costs)
		if err != nil {
			return nil, err
		}
		for _, e := range c.Entries {
			vals := make([]dcop.Value, len(e.Values))
			for j, val := range e.Values {
				vals[j] = dcop.Value(val)
			}
			idx, ok := spaceIndex(space, vals)
			if !ok {
				return nil, fmt.Errorf("constraint %q: entry value out of domain", name)
			}
			space.Costs[idx] = dcop.Cost(e.Cost)
		}
		p.Spaces = append(p.Spaces, space)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// spaceIndex computes the row-major index of one tuple.
func spaceIndex(s *dcop.Space, vals []dcop.Value) (int, bool) {
	idx := 0
	for i, v := range vals {
		pos := -1
		for j, dv := range s.Domains[i] {
			if dv == v {
				pos = j
				break
			}
		}
		if pos < 0 {
			return 0, false
		}
		idx = idx*len(s.Domains[i]) + pos
	}
	return idx, true
}

func contains(domain []int64, v int64) bool {
	for _, d := range domain {
		if d == v {
			return true
		}
	}
	return false
}
