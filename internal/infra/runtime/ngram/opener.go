package ngram

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/yanqian/transcript2minutes/internal/domain/model"
)

// Resolver maps a model reference to a local artifact directory.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// TokenizerFactory builds the tokenizer named by a manifest.
type TokenizerFactory func(encoding string, vocabSize int) (model.Tokenizer, error)

// Opener loads ngram artifacts. It implements model.Opener.
type Opener struct {
	resolver   Resolver
	tokenizers TokenizerFactory
	logger     *slog.Logger
}

// NewOpener constructs an Opener.
func NewOpener(resolver Resolver, tokenizers TokenizerFactory, logger *slog.Logger) *Opener {
	return &Opener{resolver: resolver, tokenizers: tokenizers, logger: logger.With("component", "runtime.ngram")}
}

// Open resolves ref, reads its manifest and weights, and builds the tokenizer.
func (o *Opener) Open(ctx context.Context, ref string, placement model.Placement) (model.Tokenizer, model.Network, error) {
	dir, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	o.logger.Info("opening model artifact", "dir", dir, "name", manifest.Name, "encoding", manifest.Tokenizer.Encoding)

	tok, err := o.tokenizers(manifest.Tokenizer.Encoding, manifest.Tokenizer.VocabSize)
	if err != nil {
		return nil, nil, fmt.Errorf("load tokenizer: %w", err)
	}
	network, err := loadNetwork(filepath.Join(dir, manifest.Weights), manifest.Tokenizer.VocabSize, placement.Precision)
	if err != nil {
		return nil, nil, err
	}
	if tok.EOS() != network.eos || tok.Pad() != network.pad {
		return nil, nil, fmt.Errorf("tokenizer control ids (%d, %d) do not match weights (%d, %d)", tok.EOS(), tok.Pad(), network.eos, network.pad)
	}
	return tok, network, nil
}

var _ model.Opener = (*Opener)(nil)
