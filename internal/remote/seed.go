package remote

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/beadboard/internal/types"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Issues []*types.Issue `yaml:"issues"`
}

// DefaultSeed returns the built-in issue set.
func DefaultSeed() ([]*types.Issue, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) ([]*types.Issue, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	issues, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return issues, nil
}

// ParseSeed decodes and validates a YAML document of the form
//
//	issues:
//	  - id: "1"
//	    title: Login fails on Safari
//	    status: Backlog
//	    ...
func ParseSeed(data []byte) ([]*types.Issue, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	seen := make(map[string]bool, len(f.Issues))
	for idx, issue := range f.Issues {
		if issue == nil {
			return nil, fmt.Errorf("issue %d: empty entry", idx)
		}
		if err := issue.Validate(); err != nil {
			return nil, fmt.Errorf("issue %d: %w", idx, err)
		}
		if seen[issue.ID] {
			return nil, fmt.Errorf("issue %d: duplicate id %q", idx, issue.ID)
		}
		seen[issue.ID] = true
		if issue.Tags == nil {
			issue.Tags = []string{}
		}
	}
	return f.Issues, nil
}
