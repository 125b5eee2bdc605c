package docdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleFiling = `In the United States District Court

Case No. 21-4512-CV

Plaintiff John Roe, residing at 123 Main Street, Springfield, IL 62704,
brings this motion against Defendant Acme Corp. Counsel may be reached at
jroe.counsel@example.com or (555) 123-4567.

Settlement in the amount of $12,500.00 was proposed on 01/15/2026,
citing 410 U.S. 113. Client ID: AC-2291. File No: F-88341.`

func TestExtract(t *testing.T) {
	got := Extract(sampleFiling)

	assert.Contains(t, got.Contact.Emails, "jroe.counsel@example.com")
	assert.Contains(t, got.Contact.Phones, "(555) 123-4567")
	assert.NotEmpty(t, got.Contact.Addresses)

	assert.Contains(t, got.Case.CaseNumbers, "Case No. 21-4512-CV")
	assert.Contains(t, got.Case.CourtReferences, "District Court")
	assert.Contains(t, got.Case.LegalCitations, "410 U.S. 113")

	assert.Contains(t, got.ClientIDs, "AC-2291")
	assert.Contains(t, got.FileNumbers, "F-88341")
}

func TestExtractDatesWithContext(t *testing.T) {
	got := Extract("The hearing is scheduled for March 3, 2026 at the courthouse.")

	assert.Len(t, got.Dates, 1)
	assert.Equal(t, "March 3, 2026", got.Dates[0].Text)
	assert.Contains(t, got.Dates[0].Context, "hearing is scheduled")
}

func TestExtractMonetaryValues(t *testing.T) {
	got := Extract("Damages of $1,234.56 plus 500 dollars in fees.")

	texts := make([]string, 0, len(got.MonetaryValues))
	for _, m := range got.MonetaryValues {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "$1,234.56")
	assert.Contains(t, texts, "500 dollars")
}

func TestExtractDeduplicatesDates(t *testing.T) {
	got := Extract("Signed 01/15/2026. Countersigned 01/15/2026.")
	assert.Len(t, got.Dates, 1)
}

func TestExtractEmptyText(t *testing.T) {
	got := Extract("")
	assert.Empty(t, got.Dates)
	assert.Empty(t, got.Contact.Emails)
	assert.Empty(t, got.Case.CaseNumbers)
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantSub string
	}{
		{
			name: "court filing subcategory tie goes to the earliest",
			// complaint, answer and motion each appear once
			text:    "The plaintiff filed a motion before the judge. The defendant answered the complaint at the hearing.",
			want:    "court_filing",
			wantSub: "complaint",
		},
		{
			name:    "court filing dominant subcategory wins",
			text:    "The plaintiff filed a motion to compel; the motion hearing is set before the judge.",
			want:    "court_filing",
			wantSub: "motion",
		},
		{
			name: "contract",
			text: "This agreement sets the terms between the parties, who hereby accept the obligations of each clause of the lease.",
			want: "contract",
		},
		{
			name: "financial",
			text: "Invoice total: payment due on the account balance.",
			want: "financial",
		},
		{
			name: "unknown",
			text: "zzz qqq xxx",
			want: "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.text)
			assert.Equal(t, tt.want, got.Name)
			if tt.wantSub != "" {
				assert.Equal(t, tt.wantSub, got.Subcategory)
			}
			if tt.want != "unknown" {
				assert.Greater(t, got.Confidence, 0.0)
				assert.LessOrEqual(t, got.Confidence, 1.0)
				assert.NotEmpty(t, got.Keywords)
			} else {
				assert.Zero(t, got.Confidence)
			}
		})
	}
}

func TestCategorizeConfidenceIsShareOfHits(t *testing.T) {
	// Only contract keywords appear, so confidence must be 1.
	got := Categorize("agreement agreement contract")
	assert.Equal(t, "contract", got.Name)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
}
