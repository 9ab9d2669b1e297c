package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/yanqian/transcript2minutes/internal/domain/model"
)

// BPE wraps a tiktoken encoding. Ids at or above the vocabulary size are
// reserved for control tokens: EOS is vocabSize, PAD is vocabSize+1.
type BPE struct {
	enc       *tiktoken.Tiktoken
	vocabSize int
}

var offlineOnce sync.Once

// useOfflineRanks points tiktoken at the ranks files bundled with the loader
// module, so no encoding is fetched over the network.
func useOfflineRanks() {
	offlineOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
}

// NewBPE loads the named encoding from the bundled ranks files.
func NewBPE(encoding string, vocabSize int) (*BPE, error) {
	encoding = strings.TrimSpace(encoding)
	if encoding == "" {
		return nil, errors.New("tokenizer encoding cannot be empty")
	}
	if vocabSize <= 0 {
		return nil, errors.New("tokenizer vocab size must be positive")
	}
	useOfflineRanks()
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &BPE{enc: enc, vocabSize: vocabSize}, nil
}

// Factory adapts NewBPE to the runtime's tokenizer factory signature.
func Factory(encoding string, vocabSize int) (model.Tokenizer, error) {
	return NewBPE(encoding, vocabSize)
}

// Encode tokenizes text as ordinary text; special token markup is not
// interpreted. Ids outside the model vocabulary are dropped.
func (b *BPE) Encode(text string) []int {
	return clip(b.enc.Encode(text, nil, nil), b.vocabSize)
}

// Decode skips control tokens.
func (b *BPE) Decode(ids []int) string {
	return b.enc.Decode(clip(ids, b.vocabSize))
}

func (b *BPE) EOS() int { return b.vocabSize }
func (b *BPE) Pad() int { return b.vocabSize + 1 }

func clip(ids []int, limit int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < limit {
			out = append(out, id)
		}
	}
	return out
}

var _ model.Tokenizer = (*BPE)(nil)
