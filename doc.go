// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package anoncreds implements anonymous credentials: an issuer blindly signs attributes bound
// to a holder's link secret with Camenisch-Lysyanskaya signatures, and the holder presents them
// in zero knowledge, revealing some attributes, proving inequalities on others and proving
// non-revocation against a pairing-based accumulator (see package revocation).
//
// The flow is as follows. The issuer creates a Schema, a CredentialDefinition and, if
// revocation is wanted, a revocation.Registry, and wraps them in an Issuer. It sends a
// CredentialOffer to the holder, who answers with a CredentialRequest from
// NewCredentialRequest. Issuer.Sign produces an IssueSignature which the holder turns into a
// Credential with RequestMetadata.Complete. To prove possession the holder calls
// Prover.BuildPresentation on a ProofRequest, and the verifier checks the result with Verify.
package anoncreds
