package ngram

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/yanqian/transcript2minutes/internal/domain/model"
)

type weightsFile struct {
	Floor     float32                       `json:"floor"`
	CopyBonus float32                       `json:"copy_bonus"`
	EOSBias   float32                       `json:"eos_bias"`
	Start     map[string]float32            `json:"start"`
	Bigrams   map[string]map[string]float32 `json:"bigrams"`
}

// Network scores the next token from the previous token's bigram row, plus a
// bonus for every token present in the source. Unlisted tokens sit at floor.
type Network struct {
	vocab     int
	eos       int
	pad       int
	floor     float32
	copyBonus float32
	eosBias   float32
	start     map[int]float32
	bigrams   map[int]map[int]float32
}

func loadNetwork(path string, vocabSize int, precision model.Precision) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	var raw weightsFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}

	n := &Network{
		vocab:     vocabSize + 2,
		eos:       vocabSize,
		pad:       vocabSize + 1,
		floor:     raw.Floor,
		copyBonus: raw.CopyBonus,
		eosBias:   raw.EOSBias,
		bigrams:   make(map[int]map[int]float32, len(raw.Bigrams)),
	}
	if n.start, err = n.parseRow(raw.Start); err != nil {
		return nil, fmt.Errorf("start row: %w", err)
	}
	for key, row := range raw.Bigrams {
		prev, err := n.parseToken(key)
		if err != nil {
			return nil, fmt.Errorf("bigram row %q: %w", key, err)
		}
		parsed, err := n.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("bigram row %q: %w", key, err)
		}
		n.bigrams[prev] = parsed
	}
	if precision == model.PrecisionFP16 {
		n.toHalf()
	}
	return n, nil
}

func (n *Network) parseRow(row map[string]float32) (map[int]float32, error) {
	out := make(map[int]float32, len(row))
	for key, score := range row {
		tok, err := n.parseToken(key)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(float64(score)) {
			return nil, fmt.Errorf("token %d has NaN score", tok)
		}
		out[tok] = score
	}
	return out, nil
}

func (n *Network) parseToken(key string) (int, error) {
	tok, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("token id %q: %w", key, err)
	}
	if tok < 0 || tok >= n.vocab || tok == n.pad {
		return 0, fmt.Errorf("token id %d outside vocabulary", tok)
	}
	return tok, nil
}

// VocabSize includes the EOS and PAD control tokens.
func (n *Network) VocabSize() int { return n.vocab }

// NextLogProbs implements model.Network.
func (n *Network) NextLogProbs(ctx context.Context, source, prefix []int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(prefix) == 0 {
		return nil, fmt.Errorf("decoder prefix cannot be empty")
	}

	row := n.start
	if last := prefix[len(prefix)-1]; last != n.pad {
		row = n.bigrams[last]
	}

	raw := make(map[int]float32, len(row)+len(source)+1)
	raw[n.eos] = n.eosBias
	for tok, s := range row {
		raw[tok] = s
	}
	for _, tok := range uniq(source, n.eos) {
		s, ok := raw[tok]
		if !ok {
			s = n.floor
		}
		raw[tok] = s + n.copyBonus
	}

	// Sum in token order so repeated calls produce identical bits.
	tokens := make([]int, 0, len(raw))
	for tok := range raw {
		tokens = append(tokens, tok)
	}
	sort.Ints(tokens)

	// log-sum-exp over the explicit scores plus every token left at floor.
	floorCount := n.vocab - 1 - len(raw)
	peak := n.floor
	for _, tok := range tokens {
		if raw[tok] > peak {
			peak = raw[tok]
		}
	}
	var sum float64
	if floorCount > 0 {
		sum = float64(floorCount) * math.Exp(float64(n.floor-peak))
	}
	for _, tok := range tokens {
		sum += math.Exp(float64(raw[tok] - peak))
	}
	logZ := float32(float64(peak) + math.Log(sum))

	out := make([]float32, n.vocab)
	base := n.floor - logZ
	for i := range out {
		out[i] = base
	}
	for tok, s := range raw {
		out[tok] = s - logZ
	}
	out[n.pad] = float32(math.Inf(-1))
	return out, nil
}

func (n *Network) toHalf() {
	n.floor = roundHalf(n.floor)
	n.copyBonus = roundHalf(n.copyBonus)
	n.eosBias = roundHalf(n.eosBias)
	for tok, s := range n.start {
		n.start[tok] = roundHalf(s)
	}
	for _, row := range n.bigrams {
		for tok, s := range row {
			row[tok] = roundHalf(s)
		}
	}
}

// roundHalf rounds the mantissa to the 10 bits of an IEEE half. Exponent
// range is not narrowed; scores are small log-probabilities.
func roundHalf(f float32) float32 {
	bits := math.Float32bits(f)
	bits = (bits + 0x1000) &^ 0x1fff
	return math.Float32frombits(bits)
}

func uniq(ids []int, limit int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= limit {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ model.Network = (*Network)(nil)
