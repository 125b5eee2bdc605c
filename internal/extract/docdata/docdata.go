// Package docdata pulls structured fields out of legal document text with
// regular expressions: dates, contacts, case identifiers, citations and
// monetary values, plus a keyword-based document category.
package docdata

import (
	"regexp"
	"strings"
)

// Snippet is a matched value with the surrounding text for review.
type Snippet struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// ContactInfo groups contact fields found in a document.
type ContactInfo struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Addresses []string `json:"addresses"`
}

// CaseInfo groups litigation identifiers found in a document.
type CaseInfo struct {
	CaseNumbers     []string `json:"case_numbers"`
	CourtReferences []string `json:"court_references"`
	LegalCitations  []string `json:"legal_citations"`
}

// Extracted is everything recognized in one document.
type Extracted struct {
	Dates           []Snippet   `json:"dates"`
	Contact         ContactInfo `json:"contact_info"`
	Case            CaseInfo    `json:"case_info"`
	MonetaryValues  []Snippet   `json:"monetary_values"`
	SSNs            []string    `json:"ssns,omitempty"`
	DriversLicenses []string    `json:"drivers_licenses,omitempty"`
	ZipCodes        []string    `json:"zip_codes,omitempty"`
	ClientIDs       []string    `json:"client_ids,omitempty"`
	FileNumbers     []string    `json:"file_numbers,omitempty"`
}

const contextRadius = 50

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
		regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
	}

	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	}
	addressPattern = regexp.MustCompile(`(?i)\b\d+\s+[A-Za-z0-9\s,]+(?:Avenue|Ave|Street|St|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Court|Ct|Way|Place|Pl|Terrace|Ter)[,\s]+[A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)

	caseNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bCase\s+No\.?\s+\d+[-A-Za-z0-9]+\b`),
		regexp.MustCompile(`(?i)\bCase\s+Number:?\s+\d+[-A-Za-z0-9]+\b`),
		regexp.MustCompile(`(?i)\bCase\s+ID:?\s+\d+[-A-Za-z0-9]+\b`),
		regexp.MustCompile(`\b[A-Z]{2,}-\d{2,}-\d{3,}\b`),
	}
	courtPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:United States|U\.S\.|Superior|District|Circuit|Federal|State|County|Municipal|Supreme) Court\b`),
		regexp.MustCompile(`\bCourt of (?:Appeals|Common Pleas|Claims)\b`),
	}
	citationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+\s+U\.S\.\s+\d+\b`),
		regexp.MustCompile(`\b\d+\s+F\.\d+\s+\d+\b`),
		regexp.MustCompile(`\b\d+\s+S\.Ct\.\s+\d+\b`),
	}

	moneyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\s*\d+(?:,\d{3})*(?:\.\d{2})?`),
		regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d{2})?\s*dollars\b`),
	}

	ssnPattern      = regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`)
	dlPattern       = regexp.MustCompile(`\b[A-Z]\d{7}\b`)
	zipPattern      = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	clientIDPattern = regexp.MustCompile(`(?i)\bClient\s+ID:?\s+([A-Za-z0-9-]+)\b`)
	fileNoPattern   = regexp.MustCompile(`(?i)\bFile\s+(?:No|Number):?\s+([A-Za-z0-9-]+)\b`)
)

// Extract scans text for all supported fields.
func Extract(text string) Extracted {
	return Extracted{
		Dates: snippets(text, datePatterns),
		Contact: ContactInfo{
			Emails:    findAll(text, emailPattern),
			Phones:    findAllMulti(text, phonePatterns),
			Addresses: trimEach(findAll(text, addressPattern)),
		},
		Case: CaseInfo{
			CaseNumbers:     findAllMulti(text, caseNumberPatterns),
			CourtReferences: findAllMulti(text, courtPatterns),
			LegalCitations:  findAllMulti(text, citationPatterns),
		},
		MonetaryValues:  snippets(text, moneyPatterns),
		SSNs:            findAll(text, ssnPattern),
		DriversLicenses: findAll(text, dlPattern),
		ZipCodes:        findAll(text, zipPattern),
		ClientIDs:       captures(text, clientIDPattern),
		FileNumbers:     captures(text, fileNoPattern),
	}
}

func snippets(text string, patterns []*regexp.Regexp) []Snippet {
	var (
		out  []Snippet
		seen = map[string]bool{}
	)
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			if seen[match] {
				continue
			}
			seen[match] = true
			out = append(out, Snippet{Text: match, Context: contextAround(text, loc[0], loc[1])})
		}
	}
	return out
}

func contextAround(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func findAll(text string, p *regexp.Regexp) []string {
	return p.FindAllString(text, -1)
}

func findAllMulti(text string, patterns []*regexp.Regexp) []string {
	var out []string
	for _, p := range patterns {
		out = append(out, p.FindAllString(text, -1)...)
	}
	return out
}

func captures(text string, p *regexp.Regexp) []string {
	var out []string
	for _, m := range p.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func trimEach(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
