package replay

import "fmt"

// Limits bound the per-move time budget a game may declare, in minutes.
// Every observer must replay with the same Limits to agree on timeouts.
type Limits struct {
	Min     int `yaml:"min" json:"min"`
	Default int `yaml:"default" json:"default"`
	Max     int `yaml:"max" json:"max"`
}

// DefaultLimits: one minute to seven days, one hour when undeclared.
var DefaultLimits = Limits{Min: 1, Default: 60, Max: 10080}

// Validate checks Min <= Default <= Max and Min >= 1.
func (l Limits) Validate() error {
	if l.Min < 1 {
		return fmt.Errorf("timeout min %d must be at least 1", l.Min)
	}
	if l.Default < l.Min || l.Default > l.Max {
		return fmt.Errorf("timeout default %d outside [%d, %d]", l.Default, l.Min, l.Max)
	}
	return nil
}

// Clamp resolves a declared timeout. nil means absent or unparseable.
func (l Limits) Clamp(declared *int) int {
	if declared == nil {
		return l.Default
	}
	v := *declared
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}
