// Package duplicate scores how likely a new transaction is to repeat one that
// is already recorded. Everything here is pure: no I/O, no clock, no state.
package duplicate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gagyebu/internal/core"
)

const (
	weightAmount      = 0.4
	weightDate        = 0.3
	weightDescription = 0.3

	merchantBonus      = 0.2
	paymentMethodBonus = 0.1
	personBonus        = 0.1

	identicalDescription = 0.95
	likelyScore          = 0.8
)

const (
	reasonSameAmount        = "같은 금액"
	reasonSameDate          = "같은 날짜"
	reasonSameDescription   = "동일한 설명"
	reasonSamePayment       = "같은 결제수단"
	reasonSamePerson        = "같은 사용자"
	reasonWarningPrefixText = "중복 가능성이 있는 거래가 있습니다"
)

// Match is an existing transaction that looks like a duplicate of the
// candidate. Similarity is not capped at 1: bonuses stack on top of the
// weighted base score.
type Match struct {
	Transaction core.Transaction
	Similarity  float64
	Reasons     []string
}

// profile caches the per-transaction work that does not depend on the pair.
type profile struct {
	tx          core.Transaction
	description []rune
	merchants   []MerchantCategory
}

func newProfile(tx core.Transaction, smart bool) profile {
	norm := Normalize(tx.Description)
	p := profile{tx: tx, description: []rune(norm)}
	if smart && norm != "" {
		p.merchants = MerchantCategories(norm)
	}
	return p
}

// Detect compares candidate against every existing transaction of the same
// type and returns the ones that score above opts.MatchThreshold with at
// least opts.MinReasons reasons, highest similarity first. Ties keep the
// order of existing.
func Detect(candidate core.Transaction, existing []core.Transaction, opts Options) []Match {
	matches := make([]Match, 0)
	if len(existing) == 0 {
		return matches
	}

	cand := newProfile(candidate, opts.EnableSmartDetection)
	for _, tx := range existing {
		if tx.Type != candidate.Type {
			continue
		}
		score, reasons := scorePair(cand, newProfile(tx, opts.EnableSmartDetection), opts)
		if score > opts.MatchThreshold && len(reasons) >= opts.MinReasons {
			matches = append(matches, Match{Transaction: tx, Similarity: score, Reasons: reasons})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// HasLikelyDuplicate reports whether strict detection finds a match scoring
// above 0.8.
func HasLikelyDuplicate(candidate core.Transaction, existing []core.Transaction) bool {
	matches := Detect(candidate, existing, StrictOptions())
	return len(matches) > 0 && matches[0].Similarity > likelyScore
}

// Warning renders a one-line notice for the best match, or "" when there is
// none. matches must already be sorted as Detect returns them.
func Warning(matches []Match) string {
	if len(matches) == 0 {
		return ""
	}
	top := matches[0]
	return fmt.Sprintf("%s (유사도 %d%%): %s",
		reasonWarningPrefixText, int(math.Round(top.Similarity*100)), strings.Join(top.Reasons, ", "))
}

func scorePair(a, b profile, opts Options) (float64, []string) {
	var score float64
	var reasons []string

	if sim := amountSimilarity(a.tx.Amount.Won, b.tx.Amount.Won, opts.AmountTolerance); sim > 0 {
		score += sim * weightAmount
		if a.tx.Amount.Won == b.tx.Amount.Won {
			reasons = append(reasons, reasonSameAmount)
		} else {
			diff := absInt64(a.tx.Amount.Won - b.tx.Amount.Won)
			reasons = append(reasons, fmt.Sprintf("비슷한 금액 (차이 %s)", core.FormatWon(diff)))
		}
	}

	if sim, days, ok := dateSimilarity(a.tx.Date, b.tx.Date, opts.DateTolerance); ok {
		score += sim * weightDate
		if days == 0 {
			reasons = append(reasons, reasonSameDate)
		} else {
			reasons = append(reasons, fmt.Sprintf("%d일 차이", days))
		}
	}

	desc := runeSimilarity(a.description, b.description)
	if opts.EnableSmartDetection && sharesMerchantCategory(a.merchants, b.merchants) {
		desc = math.Min(1, desc+merchantBonus)
	}
	if desc > 0 && desc >= opts.DescriptionThreshold {
		score += desc * weightDescription
		if desc > identicalDescription {
			reasons = append(reasons, reasonSameDescription)
		} else {
			reasons = append(reasons, fmt.Sprintf("비슷한 설명 (%d%% 일치)", int(math.Round(desc*100))))
		}
	}

	if opts.EnableSmartDetection {
		// An unrecorded method on both sides is not evidence of anything.
		if pm := strings.TrimSpace(a.tx.PaymentMethod); pm != "" && pm == strings.TrimSpace(b.tx.PaymentMethod) {
			score += paymentMethodBonus
			reasons = append(reasons, reasonSamePayment)
		}
		if a.tx.PersonType != "" && a.tx.PersonType == b.tx.PersonType && a.tx.PersonID == b.tx.PersonID {
			score += personBonus
			reasons = append(reasons, reasonSamePerson)
		}
	}

	return score, reasons
}

// amountSimilarity is 1 for equal amounts and falls linearly to 0 as the
// relative difference reaches tolerance.
func amountSimilarity(a, b int64, tolerance float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a == b {
		return 1
	}
	if tolerance <= 0 {
		return 0
	}
	avg := float64(a+b) / 2
	rel := float64(absInt64(a-b)) / avg
	if rel > tolerance {
		return 0
	}
	return 1 - rel/tolerance
}

// dateSimilarity is 1 for the same day and stays positive up to and
// including tolerance days apart.
func dateSimilarity(a, b core.Date, tolerance int) (float64, int, bool) {
	if a.IsZero() || b.IsZero() || tolerance < 0 {
		return 0, 0, false
	}
	days := a.DaysUntil(b)
	if days < 0 {
		days = -days
	}
	if days > tolerance {
		return 0, days, false
	}
	return 1 - float64(days)/float64(tolerance+1), days, true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
