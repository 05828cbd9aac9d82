package insights

import (
	"fmt"
	"math"
	"strings"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
)

// Config holds every threshold the pipeline uses. It is passed explicitly,
// nothing is read from the environment here.
type Config struct {
	Contamination    float64 `yaml:"contamination"`
	AnomalyThreshold float64 `yaml:"anomaly_threshold"`
	MinSampleSize    int     `yaml:"min_sample_size"`
	Trees            int     `yaml:"trees"`
	SampleSize       int     `yaml:"sample_size"`
	Seed             uint64  `yaml:"seed"`

	NeedsShare   float64 `yaml:"needs_share"`
	WantsShare   float64 `yaml:"wants_share"`
	SavingsShare float64 `yaml:"savings_share"`

	SmallTransactionCount int     `yaml:"small_transaction_count"`
	SmallTicketAmount     float64 `yaml:"small_ticket_amount"`
	ConsolidationRate     float64 `yaml:"consolidation_rate"`
}

func DefaultConfig() Config {
	return Config{
		Contamination:         0.1,
		AnomalyThreshold:      0.5,
		MinSampleSize:         5,
		Trees:                 100,
		SampleSize:            256,
		Seed:                  42,
		NeedsShare:            0.5,
		WantsShare:            0.3,
		SavingsShare:          0.2,
		SmallTransactionCount: 10,
		SmallTicketAmount:     20,
		ConsolidationRate:     0.1,
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var problems []string

	if c.Contamination <= 0 || c.Contamination > 0.5 {
		problems = append(problems, "contamination must be in (0, 0.5]")
	}
	if c.AnomalyThreshold < 0 || c.AnomalyThreshold > 1 {
		problems = append(problems, "anomaly_threshold must be in [0, 1]")
	}
	if c.MinSampleSize < 2 {
		problems = append(problems, "min_sample_size must be at least 2")
	}
	if c.Trees <= 0 {
		problems = append(problems, "trees must be positive")
	}
	if c.SampleSize < 2 {
		problems = append(problems, "sample_size must be at least 2")
	}
	shares := []struct {
		name  string
		value float64
	}{
		{"needs_share", c.NeedsShare},
		{"wants_share", c.WantsShare},
		{"savings_share", c.SavingsShare},
	}
	for _, share := range shares {
		if share.value < 0 || share.value > 1 {
			problems = append(problems, share.name+" must be in [0, 1]")
		}
	}
	if sum := c.NeedsShare + c.WantsShare + c.SavingsShare; math.Abs(sum-1) > 1e-9 {
		problems = append(problems, fmt.Sprintf("bucket shares must sum to 1, got %v", sum))
	}
	if c.SmallTransactionCount <= 0 {
		problems = append(problems, "small_transaction_count must be positive")
	}
	if c.SmallTicketAmount <= 0 {
		problems = append(problems, "small_ticket_amount must be positive")
	}
	if c.ConsolidationRate < 0 || c.ConsolidationRate > 1 {
		problems = append(problems, "consolidation_rate must be in [0, 1]")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: invalid analytics config: %s", appErrors.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (c Config) forestParams() iforest.Params {
	return iforest.Params{
		Trees:         c.Trees,
		SampleSize:    c.SampleSize,
		Contamination: c.Contamination,
		Seed:          c.Seed,
	}
}
