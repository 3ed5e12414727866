package domain

import "time"

// RawDetection is a single decoded payload handed over by the camera decoder.
type RawDetection struct {
	SessionID string    `json:"session_id,omitempty"`
	Payload   string    `json:"payload"`
	ArrivedAt time.Time `json:"arrived_at"`
}

type CodeKind string

const (
	CodeJAN13        CodeKind = "jan13"
	CodeGTIN14       CodeKind = "gtin14"
	CodeUnrecognized CodeKind = "unrecognized"
)

// NormalizedCode carries exactly one recognized code, or none.
type NormalizedCode struct {
	Kind  CodeKind `json:"kind"`
	Value string   `json:"value,omitempty"`
}

func (c NormalizedCode) IsJAN13() bool  { return c.Kind == CodeJAN13 }
func (c NormalizedCode) IsGTIN14() bool { return c.Kind == CodeGTIN14 }
