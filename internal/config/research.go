package config

import "fmt"

// Depth selects how extensively the backend researches a topic.
type Depth string

const (
	DepthBasic        Depth = "basic"
	DepthIntermediate Depth = "intermediate"
	DepthDeep         Depth = "deep"
)

// Validate checks whether the value is a known Depth. An empty value is
// replaced with the default (DepthBasic).
func (d *Depth) Validate() error {
	switch *d {
	case "":
		*d = DepthBasic
		return nil
	case DepthBasic, DepthIntermediate, DepthDeep:
		return nil
	default:
		return fmt.Errorf(
			"bad Depth value: must be empty or one of %q, %q, %q",
			string(DepthBasic),
			string(DepthIntermediate),
			string(DepthDeep),
		)
	}
}

// ResearchDefaults holds the research options passed on every start_research
// command until the user changes them.
type ResearchDefaults struct {
	Depth            Depth `yaml:"depth"`
	Sources          bool  `yaml:"sources"`
	Citations        bool  `yaml:"citations"`
	MaxDepth         int   `yaml:"max_depth"`
	NumSitesPerQuery int   `yaml:"num_sites_per_query"`
}

// DefaultResearchOptions returns the stock option set.
func DefaultResearchOptions() ResearchDefaults {
	return ResearchDefaults{
		Depth:            DepthBasic,
		Sources:          true,
		Citations:        false,
		MaxDepth:         1,
		NumSitesPerQuery: 3,
	}
}

// Validate checks option ranges and normalizes the depth.
func (r *ResearchDefaults) Validate() error {
	if err := r.Depth.Validate(); err != nil {
		return err
	}
	if r.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", r.MaxDepth)
	}
	if r.NumSitesPerQuery < 1 {
		return fmt.Errorf("num_sites_per_query must be positive, got %d", r.NumSitesPerQuery)
	}
	return nil
}
