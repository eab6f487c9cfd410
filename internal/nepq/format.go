package nepq

import "fmt"

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var stageColors = [StageCount]string{"blue", "green", "yellow", "orange", "red", "purple", "indigo", "emerald"}

// StageColor names the palette colour for a stage; invalid stages get the first colour.
func StageColor(s Stage) string {
	if !s.Valid() {
		return stageColors[0]
	}
	return stageColors[s-1]
}

// ScoreTier buckets an overall score for display.
type ScoreTier string

const (
	ScoreTierExcellent ScoreTier = "excellent"
	ScoreTierGood      ScoreTier = "good"
	ScoreTierFair      ScoreTier = "fair"
	ScoreTierNeedsWork ScoreTier = "needs_work"
	ScoreTierPoor      ScoreTier = "poor"
)

// TierOf maps an overall score to its tier: 90, 80, 70 and 60 are the lower bounds.
func TierOf(overall int) ScoreTier {
	switch {
	case overall >= 90:
		return ScoreTierExcellent
	case overall >= 80:
		return ScoreTierGood
	case overall >= 70:
		return ScoreTierFair
	case overall >= 60:
		return ScoreTierNeedsWork
	default:
		return ScoreTierPoor
	}
}

// Color is the palette colour used for the tier.
func (t ScoreTier) Color() string {
	switch t {
	case ScoreTierExcellent:
		return "emerald"
	case ScoreTierGood:
		return "green"
	case ScoreTierFair:
		return "yellow"
	case ScoreTierNeedsWork:
		return "orange"
	default:
		return "red"
	}
}
