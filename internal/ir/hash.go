package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity. Version suffix enables
// future hashing-algorithm migration without colliding with old ids.
const (
	DomainEvent    = "matchcore/event/v1"
	DomainReaction = "matchcore/reaction/v1"
	DomainBinding  = "matchcore/binding/v1"
	DomainRuleset  = "matchcore/ruleset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes a content-addressed id for an event. Stable across
// restarts and replays given the same inputs, which is what lets the
// store's ON CONFLICT DO NOTHING writes make replay idempotent.
func EventID(flowToken, eventType string, payload IRObject, seq int64) (string, error) {
	obj := IRObject{
		"flow_token": IRString(flowToken),
		"event_type": IRString(eventType),
		"payload":    payload,
		"seq":        IRInt(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// ReactionID computes a content-addressed id for a reaction, linking it
// to the event that caused it via eventID.
func ReactionID(eventID, triggerID string, bindings IRObject, seq int64) (string, error) {
	obj := IRObject{
		"event_id":   IRString(eventID),
		"trigger_id": IRString(triggerID),
		"bindings":   bindings,
		"seq":        IRInt(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReactionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReaction, canonical), nil
}

// BindingHash computes a hash of trigger bindings for idempotency checks.
// Used by the store's UNIQUE(event_id, trigger_id, binding_hash) index.
func BindingHash(bindings IRObject) (string, error) {
	canonical, err := MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// RulesetHash fingerprints a compiled ruleset so a persisted match can be
// validated against the ruleset it was played with (spec.md §6's
// "ruleset hash" in the persisted state layout). Uses ordinary JSON
// rather than MarshalCanonical since Ruleset is a plain Go struct, not
// an IRValue tree; stability across field-order-preserving re-encodes is
// all replay validation needs, not cross-language canonical identity.
func RulesetHash(rs *Ruleset) (string, error) {
	data, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("RulesetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRuleset, data), nil
}

// MustEventID is like EventID but panics on error. Use only in tests or
// when inputs are known to be valid.
func MustEventID(flowToken, eventType string, payload IRObject, seq int64) string {
	id, err := EventID(flowToken, eventType, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustReactionID is like ReactionID but panics on error.
func MustReactionID(eventID, triggerID string, bindings IRObject, seq int64) string {
	id, err := ReactionID(eventID, triggerID, bindings, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustBindingHash is like BindingHash but panics on error.
func MustBindingHash(bindings IRObject) string {
	hash, err := BindingHash(bindings)
	if err != nil {
		panic(err)
	}
	return hash
}
