// Package cleaning wraps the opaque external text-correction capability
// (an LLM call): request/response contracts, payload parsing and schema
// validation, and a retrying gateway with degradation semantics.
package cleaning

import (
	"context"
	"errors"
	"fmt"

	"github.com/hansbug/fiscai/ledger"
)

// Mode selects the expected response shape.
type Mode string

const (
	ModeTable    Mode = "table"    // structured table matching the schema
	ModeMetadata Mode = "metadata" // array of metadata field descriptors
)

// RawField is one metadata descriptor as returned by the capability, before
// type coercion.
type RawField struct {
	ZHName string `json:"zh_name,omitempty"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Value  any    `json:"value"`
}

// Request is one cleaning call. The capability must be treated as
// side-effect-free: retries resubmit the identical request.
type Request struct {
	Rows       []ledger.Row
	SchemaHint *ledger.ReferenceSchema
	Mode       Mode

	// Carry-forward hints from the first successfully cleaned page, purely
	// advisory formatting context for the capability.
	ReferenceTable    []ledger.Row
	ReferenceMetadata []RawField
}

// Capability is the opaque cleaning function. It returns its raw payload
// (JSON or CSV, possibly wrapped in a Markdown code fence) and may fail
// with timeouts, refusals, or malformed output.
type Capability interface {
	Clean(ctx context.Context, req Request) ([]byte, error)
}

// CapabilityError classifies a failed cleaning exchange. Retryable up to the
// configured bound; after exhaustion the chunk degrades instead of aborting
// the run.
type CapabilityError struct {
	Attempts int
	Cause    error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("cleaning capability failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *CapabilityError) Unwrap() error { return e.Cause }

// ErrMalformedPayload marks a response the gateway could not parse or that
// failed schema validation.
var ErrMalformedPayload = errors.New("malformed capability payload")
