package generation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/yanqian/transcript2minutes/internal/domain/model"
)

var negInf = float32(math.Inf(-1))

type beam struct {
	tokens []int
	score  float64
}

type hypothesis struct {
	tokens []int
	score  float64
}

type candidate struct {
	beam  int
	token int
	score float64
}

// beamSearch decodes the highest scoring sequence for source. Generated
// tokens exclude the decoder start token and the closing EOS.
func beamSearch(ctx context.Context, net model.Network, source []int, start, eos int, p Params) ([]int, error) {
	vocab := net.VocabSize()
	if eos < 0 || eos >= vocab {
		return nil, fmt.Errorf("eos token %d outside vocabulary of %d", eos, vocab)
	}

	beams := []beam{{}}
	var finished []hypothesis
	done := false

	for step := 0; step < p.MaxLength && !done; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cands := make([]candidate, 0, len(beams)*2*p.BeamCount)
		for bi, b := range beams {
			prefix := make([]int, 0, len(b.tokens)+1)
			prefix = append(prefix, start)
			prefix = append(prefix, b.tokens...)

			logp, err := net.NextLogProbs(ctx, source, prefix)
			if err != nil {
				return nil, fmt.Errorf("score step %d: %w", step, err)
			}
			if len(logp) != vocab {
				return nil, fmt.Errorf("network returned %d scores for vocabulary of %d", len(logp), vocab)
			}
			if len(b.tokens) < p.MinLength {
				logp[eos] = negInf
			}
			for _, tok := range bannedTokens(b.tokens, p.NoRepeatNgramSize) {
				if tok >= 0 && tok < vocab {
					logp[tok] = negInf
				}
			}
			for _, tok := range topK(logp, 2*p.BeamCount) {
				cands = append(cands, candidate{beam: bi, token: tok, score: b.score + float64(logp[tok])})
			}
		}
		sortCandidates(cands)

		next := make([]beam, 0, p.BeamCount)
		for rank, c := range cands {
			parent := beams[c.beam].tokens
			if c.token == eos {
				// EOS only closes a hypothesis from the top BeamCount ranks.
				if rank < p.BeamCount {
					tokens := append([]int(nil), parent...)
					finished = append(finished, hypothesis{
						tokens: tokens,
						score:  normalize(c.score, len(tokens)+1, p.LengthPenalty),
					})
				}
				continue
			}
			tokens := make([]int, len(parent)+1)
			copy(tokens, parent)
			tokens[len(parent)] = c.token
			next = append(next, beam{tokens: tokens, score: c.score})
			if len(next) == p.BeamCount {
				break
			}
		}

		beams = next
		if len(finished) >= p.BeamCount || len(beams) == 0 {
			done = true
		}
	}

	if !done {
		for _, b := range beams {
			finished = append(finished, hypothesis{
				tokens: b.tokens,
				score:  normalize(b.score, len(b.tokens), p.LengthPenalty),
			})
		}
	}

	if len(finished) == 0 {
		return nil, nil
	}
	best := finished[0]
	for _, h := range finished[1:] {
		if h.score > best.score {
			best = h
		}
	}
	return best.tokens, nil
}

// normalize divides the summed log-probability by length^penalty. Since
// scores are negative, penalties above 1 favor longer hypotheses.
func normalize(sum float64, length int, penalty float64) float64 {
	if length < 1 {
		length = 1
	}
	return sum / math.Pow(float64(length), penalty)
}

// bannedTokens lists tokens that would complete an n-gram already present in
// generated.
func bannedTokens(generated []int, n int) []int {
	if n <= 0 || len(generated)+1 < n {
		return nil
	}
	if n == 1 {
		return append([]int(nil), generated...)
	}
	prefix := generated[len(generated)-n+1:]
	var banned []int
	for i := 0; i+n <= len(generated); i++ {
		if equalInts(generated[i:i+n-1], prefix) {
			banned = append(banned, generated[i+n-1])
		}
	}
	return banned
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// topK returns the indices of the k highest finite scores, highest first,
// lower token id first on ties.
func topK(scores []float32, k int) []int {
	out := make([]int, 0, k)
	for tok, s := range scores {
		if math.IsInf(float64(s), -1) || math.IsNaN(float64(s)) {
			continue
		}
		if len(out) == k && s <= scores[out[k-1]] {
			continue
		}
		pos := len(out)
		for pos > 0 && s > scores[out[pos-1]] {
			pos--
		}
		if len(out) < k {
			out = append(out, 0)
		}
		copy(out[pos+1:], out[pos:len(out)-1])
		out[pos] = tok
	}
	return out
}

func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].beam != cands[j].beam {
			return cands[i].beam < cands[j].beam
		}
		return cands[i].token < cands[j].token
	})
}
