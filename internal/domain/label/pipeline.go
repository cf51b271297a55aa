package label

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"printbridge-probe/internal/platform/config"
	"printbridge-probe/internal/utils"
)

// Pipeline renders, validates and base64-encodes label payloads for
// transmission. The payload lives only for the send: it is never persisted.
type Pipeline struct {
	renderer  *Renderer
	validator *Validator
	logger    *utils.Logger
	security  *config.SecurityConfig
}

// Options configures the pipeline behaviour.
type Options struct {
	Security *config.SecurityConfig
	Logger   *utils.Logger
}

// Input describes a streaming label payload.
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         string
}

// Output contains the transmit-ready artefacts produced by the pipeline.
type Output struct {
	Base64     string
	Bytes      []byte
	Format     string
	Validation ValidationResult
}

// NewPipeline constructs a label pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, fmt.Errorf("security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}

	return &Pipeline{
		renderer:  NewRenderer(),
		validator: NewValidator(opts.Security, opts.Logger),
		logger:    opts.Logger,
		security:  opts.Security,
	}, nil
}

// BuildPayload renders the label described by spec and runs it through
// validation and encoding.
func (p *Pipeline) BuildPayload(ctx context.Context, spec Spec) (*Output, error) {
	rendered, err := p.renderer.Render(spec)
	if err != nil {
		return nil, err
	}

	return p.Process(ctx, Input{
		Reader:         bytes.NewReader(rendered.Bytes),
		DeclaredFormat: rendered.Format,
		Source:         "renderer",
	})
}

// Process streams the input through validation and base64 encoding in a
// single pass.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("label reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.security.MaxFileSize
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: maxSize + 1,
	}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, fmt.Errorf("stream label bytes: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalise base64 encoding: %w", err)
	}

	if limited.N <= 0 {
		return nil, fmt.Errorf("label exceeds maximum size of %d bytes", maxSize)
	}

	rawBytes := rawBuf.Bytes()
	validation := p.validator.ValidateBytes(rawBytes, input.DeclaredFormat)
	if !validation.IsValid {
		if validation.Error != nil {
			return nil, validation.Error
		}
		return nil, fmt.Errorf("label validation failed")
	}

	return &Output{
		Base64:     base64Buf.String(),
		Bytes:      rawBytes,
		Format:     validation.Format,
		Validation: validation,
	}, nil
}
