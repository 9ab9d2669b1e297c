// Package ngram implements the copy-biased bigram decoder runtime. A model
// artifact is a directory holding manifest.yaml and a JSON weights file.
package ngram

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the file that marks a directory as a model artifact.
const ManifestFile = "manifest.yaml"

// RuntimeName is the only runtime this package opens.
const RuntimeName = "ngram"

// Manifest describes a model artifact.
type Manifest struct {
	Name      string          `yaml:"name"`
	Runtime   string          `yaml:"runtime"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Weights   string          `yaml:"weights"`
}

// TokenizerConfig names the BPE encoding the weights were built against.
type TokenizerConfig struct {
	Encoding  string `yaml:"encoding"`
	VocabSize int    `yaml:"vocabSize"`
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Validate checks the manifest is usable by this runtime.
func (m Manifest) Validate() error {
	if m.Runtime != RuntimeName {
		return fmt.Errorf("unsupported runtime %q", m.Runtime)
	}
	if strings.TrimSpace(m.Tokenizer.Encoding) == "" {
		return errors.New("tokenizer.encoding cannot be empty")
	}
	if m.Tokenizer.VocabSize <= 0 {
		return errors.New("tokenizer.vocabSize must be positive")
	}
	if strings.TrimSpace(m.Weights) == "" {
		return errors.New("weights cannot be empty")
	}
	if filepath.IsAbs(m.Weights) || strings.Contains(m.Weights, "..") {
		return errors.New("weights must be a file inside the model directory")
	}
	return nil
}
