package query

import "strings"

// Score rates how well a free-text query matches a haystack, in [0, 1].
// Three tiers, checked in order:
//
//  1. exact substring of the haystack -> 1.0
//  2. containment either way against any whitespace-delimited haystack word
//     (covers singular/plural and compound-word variants) -> 1.0
//  3. Ratcliff-Obershelp similarity between query and haystack
//
// An empty query scores 1.0 for every row; a non-empty query against an
// empty haystack scores 0.0.
func Score(needle, haystack string) float64 {
	if needle == "" {
		return 1.0
	}
	if haystack == "" {
		return 0.0
	}
	if strings.Contains(haystack, needle) {
		return 1.0
	}
	for _, word := range strings.Fields(haystack) {
		if strings.Contains(word, needle) || strings.Contains(needle, word) {
			return 1.0
		}
	}
	return Ratio(needle, haystack)
}

// Ratio computes the Ratcliff-Obershelp similarity of two strings:
// 2*M / (len(a)+len(b)), where M is the total size of all matching blocks
// found by recursively locating the longest common substring and matching
// to its left and right. Deterministic: ties go to the earliest block.
func Ratio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}

	// Positions of each rune in b, for the inner matching loop.
	b2j := make(map[rune][]int, len(br))
	for j, r := range br {
		b2j[r] = append(b2j[r], j)
	}

	matched := matchingSize(ar, br, 0, len(ar), 0, len(br), b2j)
	return 2.0 * float64(matched) / float64(total)
}

func matchingSize(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	i, j, size := longestMatch(a, b, alo, ahi, blo, bhi, b2j)
	if size == 0 {
		return 0
	}
	matched := size
	matched += matchingSize(a, b, alo, i, blo, j, b2j)
	matched += matchingSize(a, b, i+size, ahi, j+size, bhi, b2j)
	return matched
}

// longestMatch finds the longest block such that a[i:i+size] == b[j:j+size]
// with alo <= i < i+size <= ahi and blo <= j < j+size <= bhi. Among equally
// long blocks it returns the one with smallest i, then smallest j.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	// j2len[j] is the length of the longest match ending at a[i], b[j].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return besti, bestj, bestsize
}
