package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrMalformedResponse indicates the provider answered but the payload could not
// be turned into a diagnosis (bad JSON, missing fields, confidence out of range).
var ErrMalformedResponse = errors.New("ai response malformed")
