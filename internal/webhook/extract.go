// Package webhook decodes Xendit callback payloads and mirrors them to a
// debug endpoint.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"strconv"
)

// TokenHeader carries the shared callback token.
const TokenHeader = "x-callback-token"

// Notification is the part of a callback the broker acts on.
type Notification struct {
	ReferenceID string
	Status      string
}

// Accepted payload shapes. Legacy callbacks put fields at the top level
// (external_id on invoice callbacks); QR payment callbacks nest them in data.
//
//	{"reference_id": "...", "status": "..."}
//	{"external_id": "...", "status": "..."}
//	{"event": "qr.payment", "data": {"reference_id": "...", "status": "..."}}
type payload struct {
	ReferenceID string      `json:"reference_id"`
	ExternalID  string      `json:"external_id"`
	Status      string      `json:"status"`
	Data        payloadData `json:"data"`
}

type payloadData struct {
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

// Extract pulls the reference and status out of raw. ok is false when no
// reference can be found. References may be strings or non-zero numbers;
// other JSON types are ignored, as are non-string statuses.
func Extract(raw map[string]any) (n Notification, ok bool) {
	var p payload
	p.ReferenceID = referenceField(raw, "reference_id")
	p.ExternalID = referenceField(raw, "external_id")
	p.Status = stringField(raw, "status")
	if data, isObj := raw["data"].(map[string]any); isObj {
		p.Data.ReferenceID = referenceField(data, "reference_id")
		p.Data.Status = stringField(data, "status")
	}

	n.Status = firstNonEmpty(p.Status, p.Data.Status)
	n.ReferenceID = firstNonEmpty(p.ReferenceID, p.Data.ReferenceID, p.ExternalID)
	return n, n.ReferenceID != ""
}

// Decode parses a callback body. Anything that is not a JSON object decodes
// to an empty payload.
func Decode(body []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}

// ValidToken reports whether got matches the configured token exactly. An
// unconfigured token rejects everything.
func ValidToken(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// referenceField reads key as a string, rendering numbers without a
// fractional part or exponent where possible (12345, not 1.2345e+04).
func referenceField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
