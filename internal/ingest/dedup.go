package ingest

import (
	"strings"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

// TitleSimilarityThreshold is the Jaccard score above which two titles from
// the same organization are treated as the same call. Calibration value
// carried over from production tuning; a match requires strictly greater.
const TitleSimilarityThreshold = 0.85

// DuplicateReason explains which rule flagged a pair.
type DuplicateReason string

const (
	DuplicateURL        DuplicateReason = "url"
	DuplicateTitle      DuplicateReason = "title"
	DuplicateSimilarity DuplicateReason = "similarity"
)

// DuplicateMatch pairs an existing record with the rule that matched it.
type DuplicateMatch struct {
	Existing *models.Opportunity
	Reason   DuplicateReason
	Score    float64 // only set for similarity matches
}

// FindDuplicates returns the existing records that duplicate the candidate.
// Precedence: exact URL, then exact case-insensitive title, then same
// organization with token-Jaccard title similarity above the threshold.
func FindDuplicates(candidate *models.Opportunity, existing []*models.Opportunity) []DuplicateMatch {
	var matches []DuplicateMatch

	titleLower := strings.ToLower(candidate.Title)
	orgLower := strings.ToLower(candidate.Organization)

	for _, other := range existing {
		if other.URL != "" && other.URL == candidate.URL {
			matches = append(matches, DuplicateMatch{Existing: other, Reason: DuplicateURL})
			continue
		}

		otherTitle := strings.ToLower(other.Title)
		if titleLower != "" && titleLower == otherTitle {
			matches = append(matches, DuplicateMatch{Existing: other, Reason: DuplicateTitle})
			continue
		}

		if orgLower != "" && orgLower == strings.ToLower(other.Organization) {
			score := JaccardSimilarity(titleLower, otherTitle)
			if score > TitleSimilarityThreshold {
				matches = append(matches, DuplicateMatch{
					Existing: other,
					Reason:   DuplicateSimilarity,
					Score:    score,
				})
			}
		}
	}

	return matches
}

// JaccardSimilarity computes the Jaccard index over whitespace-tokenized
// word sets of the two strings.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

// MergeInto folds a cross-platform duplicate into the existing record: the
// incoming URL joins the alternates, and empty fields on the existing side
// take the incoming value. A populated field is never overwritten.
func MergeInto(existing, incoming *models.Opportunity) {
	if incoming.URL != "" && incoming.URL != existing.URL {
		existing.AlternateURLs = appendUnique(existing.AlternateURLs, incoming.URL)
	}
	if existing.Organization == "" {
		existing.Organization = incoming.Organization
	}
	if existing.DeadlineRaw == "" {
		existing.DeadlineRaw = incoming.DeadlineRaw
	}
	if existing.DeadlineParsed == nil {
		existing.DeadlineParsed = incoming.DeadlineParsed
	}
	if existing.LocationRaw == "" {
		existing.LocationRaw = incoming.LocationRaw
	}
	if existing.LocationCity == "" {
		existing.LocationCity = incoming.LocationCity
	}
	if existing.LocationState == "" {
		existing.LocationState = incoming.LocationState
	}
	if existing.LocationCountry == "" {
		existing.LocationCountry = incoming.LocationCountry
	}
	if existing.FeeRaw == "" {
		existing.FeeRaw = incoming.FeeRaw
		existing.FeeAmount = incoming.FeeAmount
		existing.FeeIsFree = incoming.FeeIsFree
	}
	if existing.Description == "" {
		existing.Description = incoming.Description
	}
	if existing.Eligibility == "" {
		existing.Eligibility = incoming.Eligibility
	}
	if existing.Email == "" {
		existing.Email = incoming.Email
	}
}
