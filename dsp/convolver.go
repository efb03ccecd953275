package dsp

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

// DefaultPartSize is the block size of the partitioned convolver.
const DefaultPartSize = 128

// Convolver is a mono partitioned overlap-add convolver. It keeps state
// between calls to Process and is not safe for concurrent use.
type Convolver struct {
	partSize int
	irLen    int
	ola      *dspconv.StreamingOverlapAddT[float32, complex64]
	out      []float32
	pad      []float32
}

// NewConvolver prepares ir for streaming convolution. An empty ir is the
// identity.
func NewConvolver(ir []float32, partSize int) (*Convolver, error) {
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	if len(ir) == 0 {
		ir = []float32{1.0}
	}
	ola, err := dspconv.NewStreamingOverlapAdd32(ir, partSize)
	if err != nil {
		return nil, fmt.Errorf("convolver: %w", err)
	}
	return &Convolver{
		partSize: partSize,
		irLen:    len(ir),
		ola:      ola,
		out:      make([]float32, partSize),
		pad:      make([]float32, partSize),
	}, nil
}

// IRLen is the impulse response length in samples.
func (c *Convolver) IRLen() int { return c.irLen }

// Process convolves input and returns len(input) samples. A trailing partial
// block is zero padded, so only inputs that are a multiple of the part size
// continue seamlessly into the next call.
func (c *Convolver) Process(input []float32) ([]float32, error) {
	output := make([]float32, len(input))
	for processed := 0; processed < len(input); processed += c.partSize {
		end := processed + c.partSize
		if end > len(input) {
			end = len(input)
		}
		block := input[processed:end]
		if len(block) < c.partSize {
			clear(c.pad)
			copy(c.pad, block)
			block = c.pad
		}
		if err := c.ola.ProcessBlockTo(c.out, block); err != nil {
			return nil, fmt.Errorf("convolver block at %d: %w", processed, err)
		}
		copy(output[processed:end], c.out)
	}
	return output, nil
}

// Reset clears the overlap history.
func (c *Convolver) Reset() {
	c.ola.Reset()
}
