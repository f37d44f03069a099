// Package intent classifies free-text questions about a dataset.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the analytic operation a question asks for.
type Intent string

const (
	Predict     Intent = "predict"
	Cluster     Intent = "cluster"
	Anomaly     Intent = "anomaly"
	Correlation Intent = "correlation"
	Summary     Intent = "summary"
	General     Intent = "general"
)

// keywords are checked in order; the first intent with a matching keyword
// wins. A keyword matches a word of the question that starts with it, so
// "group" matches "groups" but not "background".
var keywords = []struct {
	intent Intent
	words  []string
}{
	{Predict, []string{"predict", "forecast", "trend", "projection", "projected"}},
	{Cluster, []string{"cluster", "segment", "group"}},
	{Anomaly, []string{"anomal", "outlier", "unusual"}},
	{Correlation, []string{"correlat", "relationship", "related"}},
	{Summary, []string{"summar", "overview", "describe"}},
}

// Classify maps a question to an intent by case-insensitive word-prefix match.
func Classify(query string) Intent {
	words := wordRe.FindAllString(strings.ToLower(query), -1)
	for _, k := range keywords {
		for _, kw := range k.words {
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return k.intent
				}
			}
		}
	}
	return General
}

var (
	countRe   = regexp.MustCompile(`(\d+)\s*(?:clusters?|segments?|groups?)`)
	kRe       = regexp.MustCompile(`\bk\s*=\s*(\d+)`)
	horizonRe = regexp.MustCompile(`(?:next|upcoming|future)\s+(\d+)`)
	wordRe    = regexp.MustCompile(`[\p{L}\p{N}_.\-]+`)
)

// ClusterCount extracts "4 clusters" or "k=4" from a question.
func ClusterCount(query string) (int, bool) {
	q := strings.ToLower(query)
	for _, re := range []*regexp.Regexp{countRe, kRe} {
		if m := re.FindStringSubmatch(q); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// Horizon extracts "next 12" from a question.
func Horizon(query string) (int, bool) {
	if m := horizonRe.FindStringSubmatch(strings.ToLower(query)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// MentionedField returns the first field named in the question, matched
// case-insensitively as a whole word, or the longest field contained in it.
func MentionedField(query string, fields []string) (string, bool) {
	q := strings.ToLower(query)
	lookup := make(map[string]string, len(fields))
	for _, f := range fields {
		lookup[strings.ToLower(f)] = f
	}
	for _, w := range wordRe.FindAllString(q, -1) {
		if f, ok := lookup[w]; ok {
			return f, true
		}
	}
	best := ""
	for _, f := range fields {
		lf := strings.ToLower(f)
		if len(lf) >= 3 && strings.Contains(q, lf) && len(f) > len(best) {
			best = f
		}
	}
	return best, best != ""
}
