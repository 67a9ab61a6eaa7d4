package runner

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/leadscout/leadscout/internal/config"
)

// Policy is the resolved throttling envelope for one run. It is computed
// once from the program's safety mode when the run starts; flipping the
// mode mid-run does not affect a run already in flight.
type Policy struct {
	Mode                string
	MaxConcurrency      int
	InterCallDelay      time.Duration
	MaxCandidatesPerRun int // 0 means no cap beyond the program's own
}

// ResolvePolicy maps a safety mode onto concrete pacing numbers. Unknown
// modes fall back to normal.
func ResolvePolicy(mode string, cfg config.SafetyConfig) Policy {
	switch mode {
	case "fast":
		conc := cfg.FastConcurrency
		if conc <= 0 {
			conc = 3
		}
		return Policy{Mode: "fast", MaxConcurrency: conc}
	case "careful":
		return Policy{
			Mode:                "careful",
			MaxConcurrency:      1,
			InterCallDelay:      cfg.CarefulDelay,
			MaxCandidatesPerRun: cfg.CarefulMaxCandidates,
		}
	default:
		return Policy{Mode: "normal", MaxConcurrency: 1, InterCallDelay: cfg.NormalDelay}
	}
}

// Limiter builds the pacing limiter for the policy. A zero delay means no
// pacing at all.
func (p Policy) Limiter() *rate.Limiter {
	if p.InterCallDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.InterCallDelay), 1)
}
