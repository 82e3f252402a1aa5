// Package similarity provides the fuzzy text matching used to compare
// quoted material against source passages and to detect overlapping
// content between passages.
package similarity

import (
	"strings"
	"unicode"
)

// Ratio computes sequence similarity between two strings in [0,1] using
// recursive longest-common-substring matching: 2*M/T where M is the total
// length of matched blocks and T the combined length. Comparison is
// rune-based and case sensitive; callers normalize first when case should
// not matter.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := 0
	for _, block := range matchingBlocks(ra, rb) {
		matched += block.size
	}
	return 2.0 * float64(matched) / float64(total)
}

// QuickRatio is a cheap upper bound on Ratio based on rune frequency.
// Useful for pre-filtering candidates before the full comparison.
func QuickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			matches++
			avail[r]--
		}
	}
	return 2.0 * float64(matches) / float64(total)
}

// WordOverlap computes Jaccard overlap between the word sets of two
// strings, ignoring case and punctuation. Order does not matter, which
// makes it suitable for ranking loosely paraphrased material.
func WordOverlap(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	common := 0
	for w := range wa {
		if wb[w] {
			common++
		}
	}
	union := len(wa) + len(wb) - common
	return float64(common) / float64(union)
}

// Coverage computes the fraction of a's words that appear in b, ignoring
// case and punctuation. Unlike WordOverlap it does not penalize b for
// extra material, so it suits checking a short quote against a long
// passage. Returns 1.0 when a has no words.
func Coverage(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 {
		return 1.0
	}
	hit := 0
	for w := range wa {
		if wb[w] {
			hit++
		}
	}
	return float64(hit) / float64(len(wa))
}

// Normalize lowercases a string and collapses runs of whitespace to a
// single space, producing stable input for comparisons.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// BestMatch returns the index and Ratio score of the candidate most
// similar to target. Returns (-1, 0) when candidates is empty.
func BestMatch(target string, candidates []string) (int, float64) {
	bestIdx := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := Ratio(target, c)
		if score > bestScore || bestIdx == -1 {
			bestIdx = i
			bestScore = score
		}
	}
	return bestIdx, bestScore
}

func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

type block struct {
	a, b, size int
}

// matchingBlocks finds non-overlapping matched substrings the way
// difflib's SequenceMatcher does, processing regions around each longest
// match with an explicit work queue instead of recursion.
func matchingBlocks(a, b []rune) []block {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type region struct{ alo, ahi, blo, bhi int }
	queue := []region{{0, len(a), 0, len(b)}}
	var blocks []block

	for len(queue) > 0 {
		r := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, r.alo, r.ahi, r.blo, r.bhi, b2j)
		if k == 0 {
			continue
		}
		blocks = append(blocks, block{i, j, k})
		if r.alo < i && r.blo < j {
			queue = append(queue, region{r.alo, i, r.blo, j})
		}
		if i+k < r.ahi && j+k < r.bhi {
			queue = append(queue, region{i + k, r.ahi, j + k, r.bhi})
		}
	}
	return blocks
}

func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (int, int, int) {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
