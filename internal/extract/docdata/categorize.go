package docdata

import "strings"

// Category is a keyword-based classification of a document.
type Category struct {
	Name string `json:"category"`
	// Confidence is the best category's share of all keyword hits, in [0,1].
	Confidence  float64  `json:"confidence"`
	Subcategory string   `json:"subcategory,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

type categoryDef struct {
	name     string
	keywords []string
	subs     []string
}

// Order matters: ties go to the earlier category.
var categoryDefs = []categoryDef{
	{
		name:     "contract",
		keywords: []string{"agreement", "contract", "terms", "parties", "hereby", "obligations", "clause", "covenant"},
		subs:     []string{"employment", "lease", "purchase", "service", "settlement", "confidentiality", "non-disclosure"},
	},
	{
		name:     "court_filing",
		keywords: []string{"court", "plaintiff", "defendant", "case", "docket", "motion", "petition", "filed", "judge", "hearing"},
		subs:     []string{"complaint", "answer", "motion", "order", "judgment", "subpoena", "affidavit", "declaration"},
	},
	{
		name:     "correspondence",
		keywords: []string{"dear", "sincerely", "regards", "letter", "attention", "reference"},
		subs:     []string{"client", "opposing_counsel", "court", "witness", "expert", "internal"},
	},
	{
		name:     "financial",
		keywords: []string{"invoice", "payment", "amount", "balance", "due", "total", "fee", "account", "transaction"},
		subs:     []string{"invoice", "receipt", "statement", "bill", "estimate", "tax"},
	},
	{
		name:     "identification",
		keywords: []string{"identification", "license", "passport", "id", "birth", "certificate", "ssn", "social security"},
	},
	{
		name:     "medical",
		keywords: []string{"medical", "health", "doctor", "patient", "hospital", "diagnosis", "treatment", "prescription"},
	},
	{
		name:     "form",
		keywords: []string{"form", "fill", "complete", "questionnaire", "application", "intake"},
		subs:     []string{"intake", "application", "questionnaire", "consent", "authorization", "registration"},
	},
}

// Categorize classifies text by counting keyword occurrences per category.
// Text with no keyword hits at all comes back as "unknown" with zero
// confidence.
func Categorize(text string) Category {
	lower := strings.ToLower(text)

	var (
		best      categoryDef
		bestScore int
		bestWords []string
		total     int
	)
	for _, def := range categoryDefs {
		var (
			score int
			words []string
		)
		for _, kw := range def.keywords {
			n := strings.Count(lower, kw)
			if n > 0 {
				score += n
				words = append(words, kw)
			}
		}
		total += score
		if score > bestScore {
			best, bestScore, bestWords = def, score, words
		}
	}
	if total == 0 {
		return Category{Name: "unknown"}
	}

	return Category{
		Name:        best.name,
		Confidence:  float64(bestScore) / float64(total),
		Subcategory: bestSubcategory(lower, best.subs),
		Keywords:    bestWords,
	}
}

func bestSubcategory(lower string, subs []string) string {
	var (
		best  string
		score int
	)
	for _, sub := range subs {
		n := 0
		// Multi-word subcategories are joined with underscores; each word
		// counts toward the score.
		for _, word := range strings.Split(sub, "_") {
			n += strings.Count(lower, word)
		}
		if n > score {
			best, score = sub, n
		}
	}
	return best
}
