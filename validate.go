package medrag

import (
	"fmt"
	"regexp"
	"strings"
)

// citationPattern matches in-text citation markers such as (NCI_DIABETES_01).
// Chunk IDs are upper-case alphanumeric tokens with underscores.
var citationPattern = regexp.MustCompile(`\(([A-Z][A-Z0-9_]*)\)`)

// boilerplatePatterns mark sentences that carry no factual claim and are
// therefore exempt from the must-cite rule, the disclaimer first of all.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)this information is for educational purposes`),
	regexp.MustCompile(`(?i)always consult.*healthcare professional`),
	regexp.MustCompile(`(?i)not medical advice`),
	regexp.MustCompile(`(?i)seek medical attention`),
	regexp.MustCompile(`(?i)get medical help`),
	regexp.MustCompile(`(?i)talk with your doctor`),
	regexp.MustCompile(`(?i)i don't have enough information in the provided sources`),
}

var stopwords = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {}, "for": {},
	"from": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {}, "with": {}, "about": {},
}

const minKeywordLength = 4

// SentenceCheck is the validation outcome for a single sentence.
// OverlapRatio is nil when the sentence carries no citation.
type SentenceCheck struct {
	Sentence     string
	CitedIDs     []ChunkID
	AllIDsExist  bool
	OverlapRatio *float64
	SupportedBy  ChunkID
	Boilerplate  bool
	Passed       bool
}

type ValidationReport struct {
	Passed            bool
	Sentences         []SentenceCheck
	MissingDisclaimer bool
	Errors            []string
}

// GenerationAttempt captures one generate/validate iteration. Immutable once
// validated; the last attempt always survives into the terminal result.
type GenerationAttempt struct {
	Number        int
	RawText       string
	Citations     []ChunkID
	HasDisclaimer bool
	Report        ValidationReport
}

// Validate cross-checks a generated text against the evidence it was meant
// to be grounded in. Pure function of text + evidence, no I/O:
//
//  1. every factual sentence must cite at least one chunk,
//  2. every cited chunk ID must exist in the evidence set,
//  3. at least one cited chunk must lexically support the sentence,
//
// plus the mandatory closing disclaimer. A sentence citing several chunks
// passes rule 3 as soon as one of them clears the overlap bar, since a
// statement may synthesise multiple pieces of evidence.
func (m *medRAG) Validate(rawText string, evidence Evidence) ValidationReport {
	var report ValidationReport

	text := strings.TrimSpace(rawText)

	report.MissingDisclaimer = !containsDisclaimer(text)
	if report.MissingDisclaimer {
		report.Errors = append(report.Errors, "required disclaimer missing")
	}

	if text == "" {
		report.Errors = append(report.Errors, "empty response")
		return report
	}

	if !m.config.EnableCitationChecking {
		report.Passed = !report.MissingDisclaimer
		return report
	}

	var (
		known          = evidence.IDs()
		allPassed      = true
		totalCitations = 0
	)

	for _, sentence := range m.splitSentences(text) {
		check := SentenceCheck{
			Sentence:    sentence,
			CitedIDs:    extractCitations(sentence),
			AllIDsExist: true,
		}
		totalCitations += len(check.CitedIDs)

		switch {
		case len(check.CitedIDs) == 0 && isBoilerplate(sentence):
			check.Boilerplate = true
			check.Passed = true

		case len(check.CitedIDs) == 0:
			report.Errors = append(report.Errors, fmt.Sprintf("sentence without citation: %q", sentence))
			allPassed = false

		default:
			for _, id := range check.CitedIDs {
				if _, ok := known[id]; !ok {
					check.AllIDsExist = false
					report.Errors = append(report.Errors, fmt.Sprintf("hallucinated citation %s in sentence: %q", id, sentence))
				}
			}
			if !check.AllIDsExist {
				allPassed = false
				break
			}

			ratio, supportedBy, supported := m.bestOverlap(sentence, check.CitedIDs, evidence)
			check.OverlapRatio = &ratio
			check.SupportedBy = supportedBy
			check.Passed = supported
			if !supported {
				report.Errors = append(report.Errors, fmt.Sprintf("sentence not supported by cited chunks (overlap %.2f): %q", ratio, sentence))
				allPassed = false
			}
		}

		report.Sentences = append(report.Sentences, check)
	}

	if totalCitations == 0 {
		report.Errors = append(report.Errors, "no citations found in answer")
		allPassed = false
	}

	report.Passed = allPassed && !report.MissingDisclaimer
	return report
}

// splitSentences segments text on sentence boundaries. The tokenizer is
// trained on English punctuation, so abbreviations do not cause false
// splits; a fragment that begins with a citation marker is re-attached to
// its preceding sentence so markers never get orphaned.
func (m *medRAG) splitSentences(text string) []string {
	var out []string
	for _, s := range m.tokenizer.Tokenize(text) {
		sentence := strings.TrimSpace(s.Text)
		if sentence == "" {
			continue
		}
		if loc := citationPattern.FindStringIndex(sentence); loc != nil && loc[0] == 0 && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + sentence
			continue
		}
		out = append(out, sentence)
	}
	return out
}

// extractCitations returns the chunk IDs cited in text, unique, in order of
// first appearance.
func extractCitations(text string) []ChunkID {
	var (
		ids  []ChunkID
		seen = map[ChunkID]struct{}{}
	)
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		id := ChunkID(match[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func isBoilerplate(sentence string) bool {
	for _, p := range boilerplatePatterns {
		if p.MatchString(sentence) {
			return true
		}
	}
	return false
}

func containsDisclaimer(text string) bool {
	normalised := strings.ToLower(strings.Join(strings.Fields(text), " "))
	disclaimer := strings.ToLower(strings.Join(strings.Fields(Disclaimer), " "))
	return strings.Contains(normalised, disclaimer)
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// keywords extracts the meaningful terms of a text: lower-cased, stopword
// filtered, short tokens dropped.
func keywords(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < minKeywordLength {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// bestOverlap computes the keyword overlap ratio between a sentence and each
// of its cited chunks and reports the best one. A sentence with no
// verifiable keywords (pure connector) passes vacuously.
func (m *medRAG) bestOverlap(sentence string, citedIDs []ChunkID, evidence Evidence) (float64, ChunkID, bool) {
	sentenceKeywords := keywords(citationPattern.ReplaceAllString(sentence, ""))
	if len(sentenceKeywords) == 0 {
		return 1, "", true
	}

	var (
		bestRatio float64
		bestID    ChunkID
	)
	for _, id := range citedIDs {
		chunk, ok := evidence.ChunkByID(id)
		if !ok {
			continue
		}
		chunkKeywords := keywords(chunk.Text)

		overlap := 0
		for w := range sentenceKeywords {
			if _, ok := chunkKeywords[w]; ok {
				overlap++
			}
		}
		ratio := float64(overlap) / float64(len(sentenceKeywords))
		if ratio > bestRatio || bestID == "" {
			bestRatio = ratio
			bestID = id
		}
	}

	return bestRatio, bestID, bestRatio >= m.config.MinKeywordOverlap
}
