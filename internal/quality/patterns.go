package quality

import (
	"regexp"
	"strings"

	"groundswell/internal/core"
)

// Known-bad shape detection. These are fast-path rejections that do not
// require full scoring: an insight matching any of them is rejected
// regardless of its numeric total.

// fillerPhrases are generic templated openers that mark content any business
// could publish about any product.
var fillerPhrases = []string{
	"in today's fast-paced world",
	"now more than ever",
	"in this day and age",
	"at the end of the day",
	"take it to the next level",
	"game-changer",
	"look no further",
	"unlock the power",
	"elevate your",
	"seamless experience",
}

// businessFacingPhrases mark reasoning written for the business rather than
// about the customer.
var businessFacingPhrases = []string{
	"our brand", "our company", "our product", "our customers",
	"leverage this", "drive engagement", "boost conversions",
	"increase revenue", "marketing funnel", "target demographic",
	"brand awareness", "value proposition",
}

// keywordConcatPattern matches runs of comma-separated fragments with no
// connective tissue, the signature of keyword-stuffed output.
var keywordConcatPattern = regexp.MustCompile(`^(\s*[\w-]+(\s[\w-]+)?\s*,){3,}`)

// Rejection explains why the pattern matcher refused an insight.
type Rejection struct {
	Pattern string
	Detail  string
}

// MatchKnownBad checks an insight against the known-bad shapes. A nil result
// means no pattern matched.
func MatchKnownBad(insight core.Insight) *Rejection {
	reasoning := strings.ToLower(insight.Reasoning)
	quote := strings.ToLower(insight.VerbatimQuote)

	for _, phrase := range fillerPhrases {
		if strings.Contains(reasoning, phrase) || strings.Contains(quote, phrase) {
			return &Rejection{Pattern: "templated_filler", Detail: phrase}
		}
	}

	for _, phrase := range businessFacingPhrases {
		if strings.Contains(reasoning, phrase) {
			return &Rejection{Pattern: "business_facing", Detail: phrase}
		}
	}

	if keywordConcatPattern.MatchString(insight.Reasoning) {
		return &Rejection{Pattern: "keyword_concatenation", Detail: "comma-run with no connective tissue"}
	}

	if len(strings.Fields(insight.Reasoning)) < 5 {
		return &Rejection{Pattern: "empty_reasoning", Detail: "reasoning under five words"}
	}

	return nil
}
