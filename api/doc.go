// Package api is the identity-sync backend. It maps wallet addresses to
// stable user ids and serves the public profile of a user.
//
// The sign-in service calls POST /api/internal/login-user-sync with the
// shared INTERNAL_API_TOKEN after a signature has been verified. The
// handler creates the user the first time an address signs in and returns
// the same id on every later call.
package api
