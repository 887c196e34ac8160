package report

type Config struct {
	Strategy         string  `envconfig:"COD_STRATEGY" default:"MEDOID"`
	MinK             int     `envconfig:"COD_MIN_K" default:"2"`
	MaxK             int     `envconfig:"COD_MAX_K" default:"12"`
	Normalize        bool    `envconfig:"COD_NORMALIZE" default:"true"`
	FuzzyThreshold   float64 `envconfig:"COD_FUZZY_THRESHOLD" default:"0.5"`
	SizeProportion   float64 `envconfig:"COD_SIZE_PROPORTION" default:"0.05"`
	IntraMultiplier  float64 `envconfig:"COD_INTRA_MULTIPLIER" default:"1.5"`
	MinOutliers      int     `envconfig:"COD_MIN_OUTLIERS" default:"50"`
	SeedPlan         string  `envconfig:"COD_SEED_PLAN"`
	SweepRuns        int     `envconfig:"COD_SWEEP_RUNS" default:"25"`
	SweepConcurrency int     `envconfig:"COD_SWEEP_CONCURRENCY" default:"4"`
}
