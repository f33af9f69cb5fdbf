package domain

import (
	"encoding/base64"
	"fmt"
)

// FailureKind classifies a pipeline failure for the caller.
type FailureKind string

const (
	FailureWorkspaceInit   FailureKind = "workspace_init"
	FailureDownloadFailed  FailureKind = "download_failed"
	FailureToolUnavailable FailureKind = "tool_unavailable"
	FailureRemuxFailed     FailureKind = "remux_failed"
	FailureDeliveryFailed  FailureKind = "delivery_failed"
	FailureInternalError   FailureKind = "internal_error"
)

// MediaPayload is the final remuxed media handed to the delivery sink.
type MediaPayload struct {
	Data      []byte
	MediaType string
}

// DataURI renders the payload as a base64 data URI suitable for inline embedding.
func (p MediaPayload) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MediaType, base64.StdEncoding.EncodeToString(p.Data))
}

// Failure describes why a pipeline run produced no media.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// Outcome is the end-to-end result of one pipeline run: delivered media
// or exactly one failure, never both.
type Outcome struct {
	Media   *MediaPayload
	Failure *Failure
}

// Delivered reports whether media reached the sink.
func (o Outcome) Delivered() bool {
	return o.Media != nil && o.Failure == nil
}

// DeliveredOutcome builds a success outcome.
func DeliveredOutcome(payload MediaPayload) Outcome {
	return Outcome{Media: &payload}
}

// FailedOutcome builds a failure outcome.
func FailedOutcome(kind FailureKind, message string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: message}}
}
