package report

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

var ErrInvalidSeedPlan = errors.New("report: invalid seed plan")

// SeedPlan is a fixed list of 0-based dataset indices for the explicit-seed
// sweep. Run i at k uses Indices[k*i : k*i+k].
type SeedPlan struct {
	Runs    int   `toml:"runs"`
	MaxK    int   `toml:"max_k"`
	Indices []int `toml:"indices"`
}

func LoadSeedPlan(path string) (*SeedPlan, error) {
	var plan SeedPlan
	if _, err := toml.DecodeFile(path, &plan); err != nil {
		return nil, fmt.Errorf("decode seed plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *SeedPlan) Validate() error {
	if p.Runs < 1 || p.MaxK < 1 {
		return fmt.Errorf("%w: runs=%d max_k=%d", ErrInvalidSeedPlan, p.Runs, p.MaxK)
	}
	if need := p.Runs * p.MaxK; len(p.Indices) < need {
		return fmt.Errorf("%w: %d indices, need %d", ErrInvalidSeedPlan, len(p.Indices), need)
	}
	return nil
}

func (p *SeedPlan) Seeds(run, k int) []int {
	start := k * run
	out := make([]int, k)
	copy(out, p.Indices[start:start+k])
	return out
}
