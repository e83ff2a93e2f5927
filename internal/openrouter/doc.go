// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openrouter implements the client for the OpenRouter API.
//
// OpenRouter provides access to multiple LLM providers through a single API.
// The client is stateless: the credential is passed per call, and the two
// operations (ListModels, SendCompletion) are independently callable.
//
// # Error taxonomy
//
//   - ErrInvalidCredential: malformed or missing key, rejected locally with
//     no network round-trip
//   - ErrMissingModel: no model identifier supplied
//   - ErrAuthenticationFailed: HTTP 401, or a transport error whose text
//     indicates missing or invalid credentials
//   - RequestError: any other non-success HTTP status, carrying the status
//     code and the message extracted from the error body when present
//   - ErrNetwork: transport-level failure with no HTTP response
//   - ErrMalformedResponse: a success body that cannot be parsed at all;
//     missing optional fields inside a parsable body default instead
package openrouter
