package search

import "strings"

// Intent is a search request found in free text.
type Intent struct {
	// Instruction is the text before the search command.
	Instruction string
	// Subject is what to search for.
	Subject string
}

// Detector finds a search intent in a user message.
type Detector interface {
	Detect(text string) (Intent, bool)
}

// HeuristicDetector triggers on messages mentioning both "search" and "for",
// e.g. "draw me a cat, search for the best breed".
//
// Matching ignores case and quotes, but splitting is case-sensitive on the
// original text: the message is cut at the first "search" (or "Search"), and
// the subject is whatever follows the next "for". A "for" that belongs to
// the instruction rather than the subject yields a wrong subject; that is
// accepted.
type HeuristicDetector struct{}

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

// Detect implements Detector.
func (HeuristicDetector) Detect(text string) (Intent, bool) {
	low := strings.ToLower(quoteStripper.Replace(text))
	if !strings.Contains(low, "search") || !strings.Contains(low, "for") {
		return Intent{}, false
	}

	instruction, command, ok := strings.Cut(text, "search")
	if !ok {
		instruction, command, ok = strings.Cut(text, "Search")
	}
	if !ok {
		return Intent{}, false
	}

	_, subject, ok := strings.Cut(command, "for")
	if !ok {
		return Intent{}, false
	}
	subject = strings.TrimLeft(subject, " \t\r\n")
	if subject == "" {
		return Intent{}, false
	}
	return Intent{Instruction: instruction, Subject: subject}, true
}
