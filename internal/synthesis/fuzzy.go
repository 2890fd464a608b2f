package synthesis

import "strings"

// normalizeForMatch lowercases, strips punctuation, and collapses whitespace
// so quote matching tolerates quoting artifacts without tolerating
// paraphrase.
func normalizeForMatch(s string) string {
	var b strings.Builder
	lastSpace := true

	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// QuoteSimilarity returns the best similarity in [0, 1] between the quote and
// any region of the source text. A normalized substring hit is a perfect
// match; otherwise word-aligned windows of the quote's length are compared by
// edit distance.
func QuoteSimilarity(quote, text string) float64 {
	nq := normalizeForMatch(quote)
	nt := normalizeForMatch(text)

	if nq == "" || nt == "" {
		return 0
	}

	if strings.Contains(nt, nq) {
		return 1.0
	}

	quoteWords := strings.Fields(nq)
	textWords := strings.Fields(nt)

	if len(quoteWords) > len(textWords) {
		return stringSimilarity(nq, nt)
	}

	best := 0.0
	window := len(quoteWords)
	for start := 0; start+window <= len(textWords); start++ {
		candidate := strings.Join(textWords[start:start+window], " ")
		if sim := stringSimilarity(nq, candidate); sim > best {
			best = sim
			if best == 1.0 {
				break
			}
		}
	}

	return best
}

// stringSimilarity converts Levenshtein distance into a similarity ratio.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}

	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = prev[j] + 1 // Deletion
			if curr[j-1]+1 < curr[j] {
				curr[j] = curr[j-1] + 1 // Insertion
			}
			if prev[j-1]+cost < curr[j] {
				curr[j] = prev[j-1] + cost // Substitution
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
