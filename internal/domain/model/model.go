// Package model resolves a model reference into a ready-to-use handle.
package model

import "context"

// Device is the compute placement of a loaded model.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Precision is the numeric width the weights are held at.
type Precision string

const (
	PrecisionFP32 Precision = "fp32"
	PrecisionFP16 Precision = "fp16"
)

// Placement tells an Opener where and how to materialize weights.
type Placement struct {
	Device    Device
	Precision Precision
}

// Tokenizer converts between text and model token ids.
type Tokenizer interface {
	Encode(text string) []int
	// Decode drops special control tokens.
	Decode(ids []int) string
	EOS() int
	Pad() int
}

// Network scores the next decoder token.
type Network interface {
	VocabSize() int
	// NextLogProbs returns log-probabilities over the whole vocabulary for the
	// token following prefix, conditioned on the encoded source. The returned
	// slice is owned by the caller.
	NextLogProbs(ctx context.Context, source, prefix []int) ([]float32, error)
}

// Opener materializes one model reference.
type Opener interface {
	Open(ctx context.Context, ref string, placement Placement) (Tokenizer, Network, error)
}

// Handle is an immutable loaded model. It is safe for concurrent readers.
type Handle struct {
	ID        string
	Tokenizer Tokenizer
	Network   Network
	Device    Device
	Precision Precision
	// Fallback reports whether the base model replaced the requested one.
	Fallback bool
}
