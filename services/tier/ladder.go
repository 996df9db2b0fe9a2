package tier

import (
	"fmt"
	"strings"

	"yapper-points/pkg/config"
	"yapper-points/pkg/errutil"
)

type Level struct {
	Name      string
	MinPoints int64
}

// Ladder is ordered by strictly increasing MinPoints. Its first level is the
// default tier for participants without any record.
type Ladder []Level

func NewLadder(tiers []config.Tier) (Ladder, error) {
	if len(tiers) == 0 {
		return nil, errutil.ValidationFailed("tier ladder is empty", nil)
	}

	names := make(map[string]bool, len(tiers))
	ladder := make(Ladder, 0, len(tiers))
	for i, t := range tiers {
		name := strings.ToUpper(strings.TrimSpace(t.Name))
		if name == "" {
			return nil, errutil.ValidationFailed("tier without name", nil, errutil.WithDetails(
				errutil.Detail{Field: fmt.Sprintf("TIERS[%d].NAME", i), Message: "required"},
			))
		}
		if names[name] {
			return nil, errutil.ValidationFailed("duplicate tier", nil, errutil.WithDetails(
				errutil.Detail{Field: fmt.Sprintf("TIERS[%d].NAME", i), Message: name},
			))
		}
		if i > 0 && t.MinPoints <= tiers[i-1].MinPoints {
			return nil, errutil.ValidationFailed("tier thresholds must increase", nil, errutil.WithDetails(
				errutil.Detail{Field: fmt.Sprintf("TIERS[%d].MIN_POINTS", i), Message: fmt.Sprintf("%d", t.MinPoints)},
			))
		}
		names[name] = true
		ladder = append(ladder, Level{Name: name, MinPoints: t.MinPoints})
	}
	return ladder, nil
}

func (l Ladder) Default() Level {
	return l[0]
}

// Evaluate returns the highest level whose threshold is <= total. Totals
// below the first threshold map to the default level.
func (l Ladder) Evaluate(total int64) Level {
	for i := len(l) - 1; i >= 0; i-- {
		if total >= l[i].MinPoints {
			return l[i]
		}
	}
	return l.Default()
}
