// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the client's failure taxonomy. Check with errors.Is.
var (
	// ErrInvalidCredential indicates a missing or malformed API key,
	// rejected locally before any network call.
	ErrInvalidCredential = errors.New("invalid OpenRouter API key")

	// ErrMissingModel indicates no model identifier was supplied.
	ErrMissingModel = errors.New("no model selected")

	// ErrAuthenticationFailed indicates the server rejected the credential.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNetwork indicates a transport-level failure with no HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse indicates a success body that could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
)

// RequestError represents a non-success HTTP response other than 401.
type RequestError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("OpenRouter error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d", e.Status)
}

// credentialErrorPhrases are transport-error fragments that indicate an
// auth problem rather than a generic network failure. The upstream proxy
// sometimes fails the TLS exchange or resets the connection with one of
// these in the error text instead of returning a proper 401.
var credentialErrorPhrases = []string{
	"No auth credentials found",
	"authentication",
	"credentials",
}

// classifyTransportError normalizes a transport-level failure: errors whose
// text looks credential-shaped become ErrAuthenticationFailed, everything
// else becomes ErrNetwork.
func classifyTransportError(err error) error {
	text := strings.ToLower(err.Error())
	for _, phrase := range credentialErrorPhrases {
		if strings.Contains(text, strings.ToLower(phrase)) {
			return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
