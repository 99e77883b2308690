// Package siws verifies Sign-In-With-Stacks messages: the EIP-4361 message
// shape with a Stacks account line, signed by a wallet over the Stacks
// message hash. Verifier implements auth.SignatureVerifier.
package siws
