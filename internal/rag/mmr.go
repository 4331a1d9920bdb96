package rag

import (
	"strings"

	"github.com/merchantkit/storesync/internal/vectorstore"
)

// maximalMarginalRelevance greedily picks candidates maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected. The top-scoring
// candidate is always kept. Text similarity is word-set Jaccard, which is
// cheap and needs no extra embedding calls.
func maximalMarginalRelevance(candidates []vectorstore.Match, topK int, lambda float32) []vectorstore.Match {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}
	selected := make([]vectorstore.Match, 0, topK)
	remaining := make([]vectorstore.Match, len(candidates))
	copy(remaining, candidates)

	// candidates arrive score-sorted, so the first is the global best
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := float32(-1 << 30)
		for i, cand := range remaining {
			var maxSim float32
			for _, sel := range selected {
				if sim := jaccardSimilarity(cand.Content, sel.Content); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.Score - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func jaccardSimilarity(a, b string) float32 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
