package ingest

import (
	"strings"
	"testing"

	"github.com/Third-South-Capital/callscrape/internal/models"
)

func TestFindDuplicatesURL(t *testing.T) {
	existing := []*models.Opportunity{
		{Title: "Winter Salon", URL: "https://example.org/call/1"},
	}
	candidate := &models.Opportunity{Title: "Totally Different", URL: "https://example.org/call/1"}

	matches := FindDuplicates(candidate, existing)
	if len(matches) != 1 || matches[0].Reason != DuplicateURL {
		t.Fatalf("same URL must always flag, got %+v", matches)
	}
}

func TestFindDuplicatesTitle(t *testing.T) {
	existing := []*models.Opportunity{
		{Title: "Annual Juried Exhibition", URL: "https://a.example.org"},
	}
	candidate := &models.Opportunity{Title: "annual juried exhibition", URL: "https://b.example.org"}

	matches := FindDuplicates(candidate, existing)
	if len(matches) != 1 || matches[0].Reason != DuplicateTitle {
		t.Fatalf("case-insensitive title must flag, got %+v", matches)
	}
}

func TestFindDuplicatesSimilarityThreshold(t *testing.T) {
	// 17 shared tokens. Candidate adds one unique token, existing adds two:
	// Jaccard = 17/20 = 0.85 exactly, which must NOT flag (strictly greater).
	common := []string{
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j",
		"k", "l", "m", "n", "o", "p", "q",
	}
	atBoundary := &models.Opportunity{
		Title:        strings.Join(append(append([]string{}, common...), "x"), " "),
		Organization: "Same Org",
		URL:          "https://a.example.org",
	}
	existing := []*models.Opportunity{{
		Title:        strings.Join(append(append([]string{}, common...), "y", "z"), " "),
		Organization: "Same Org",
		URL:          "https://b.example.org",
	}}

	if matches := FindDuplicates(atBoundary, existing); len(matches) != 0 {
		t.Fatalf("score exactly at threshold must not flag, got %+v", matches)
	}

	// 18 shared of 20 union = 0.9: flags.
	above := &models.Opportunity{
		Title:        strings.Join(append(append([]string{}, common...), "y", "w"), " "),
		Organization: "Same Org",
		URL:          "https://c.example.org",
	}
	matches := FindDuplicates(above, existing)
	if len(matches) != 1 || matches[0].Reason != DuplicateSimilarity {
		t.Fatalf("score above threshold must flag, got %+v", matches)
	}
	if matches[0].Score <= TitleSimilarityThreshold {
		t.Errorf("score = %v, want > %v", matches[0].Score, TitleSimilarityThreshold)
	}
}

func TestFindDuplicatesDifferentOrgNoSimilarity(t *testing.T) {
	candidate := &models.Opportunity{
		Title:        "Spring Members Show 2026",
		Organization: "Org One",
		URL:          "https://a.example.org",
	}
	existing := []*models.Opportunity{{
		Title:        "Spring Members Show 2027",
		Organization: "Org Two",
		URL:          "https://b.example.org",
	}}
	if matches := FindDuplicates(candidate, existing); len(matches) != 0 {
		t.Fatalf("similar titles across different orgs must not flag, got %+v", matches)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"call for artists", "call for artists", 1},
		{"call for artists", "call for sculptors", 0.5},
		{"", "anything", 0},
		{"anything", "", 0},
	}
	for _, tt := range tests {
		if got := JaccardSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("JaccardSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMergeIntoPreservesPopulated(t *testing.T) {
	deadline := "2026-09-15"
	existing := &models.Opportunity{
		Title:        "Winter Salon",
		URL:          "https://cafe.example.org/1",
		Organization: "River Gallery",
		DeadlineRaw:  deadline,
	}
	incoming := &models.Opportunity{
		Title:        "Winter Salon",
		URL:          "https://artcall.example.org/1",
		Organization: "Should Not Overwrite",
		DeadlineRaw:  "2026-10-01",
		LocationRaw:  "Hudson, NY",
		FeeRaw:       "$25",
	}

	MergeInto(existing, incoming)

	if existing.Organization != "River Gallery" {
		t.Errorf("populated organization was overwritten: %q", existing.Organization)
	}
	if existing.DeadlineRaw != deadline {
		t.Errorf("populated deadline was overwritten: %q", existing.DeadlineRaw)
	}
	if existing.LocationRaw != "Hudson, NY" {
		t.Errorf("empty location should take incoming value, got %q", existing.LocationRaw)
	}
	if existing.FeeRaw != "$25" {
		t.Errorf("empty fee should take incoming value, got %q", existing.FeeRaw)
	}
	if len(existing.AlternateURLs) != 1 || existing.AlternateURLs[0] != incoming.URL {
		t.Errorf("incoming URL should join alternates, got %v", existing.AlternateURLs)
	}

	// Merging the same record again must not duplicate the alternate URL.
	MergeInto(existing, incoming)
	if len(existing.AlternateURLs) != 1 {
		t.Errorf("alternate URLs must stay unique, got %v", existing.AlternateURLs)
	}
}
