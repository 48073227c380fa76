package duplicate

// Options tunes a single detection call. It is passed by value, so callers
// can adjust it per call without affecting anyone else.
type Options struct {
	// AmountTolerance is the largest relative difference (against the average
	// of both amounts) that still earns amount similarity, e.g. 0.02 for 2%.
	AmountTolerance float64
	// DateTolerance is the largest day difference that earns date similarity.
	DateTolerance int
	// DescriptionThreshold is the minimum description similarity in [0,1]
	// that is counted toward the score.
	DescriptionThreshold float64
	// EnableSmartDetection turns on the merchant-category bonus and the
	// payment-method and person bonuses.
	EnableSmartDetection bool
	// MatchThreshold is the score a pair must exceed to be reported.
	MatchThreshold float64
	// MinReasons is the minimum number of reasons a reported pair must have.
	MinReasons int
}

// DefaultOptions returns the tolerances used by the entry form's live check.
func DefaultOptions() Options {
	return Options{
		AmountTolerance:      0.02,
		DateTolerance:        3,
		DescriptionThreshold: 0.7,
		EnableSmartDetection: true,
		MatchThreshold:       0.6,
		MinReasons:           2,
	}
}

// StrictOptions returns the tighter tolerances used before submitting.
func StrictOptions() Options {
	o := DefaultOptions()
	o.AmountTolerance = 0.01
	o.DateTolerance = 1
	o.DescriptionThreshold = 0.8
	return o
}
