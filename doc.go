// Package auth implements wallet sign-in: a Stacks wallet signs a message
// carrying a server issued nonce, the signature is verified, the address is
// synced with the backend and a session token is written to a cookie.
//
// Sign-in:
//   - CredentialAuthorizer checks the credential shape, verifies the signed
//     message for the application domain and the csrf nonce, consumes the
//     nonce and asks the backend for the user id. Every failure is a denial
//     with a DenialReason and is sent to a DiagnosticsReporter. Clients only
//     ever see CredentialsSignin.
//   - Auther turns an authorized user into a signed session token and
//     emits an ActivityEvent for every attempt.
//
// Cookies:
//   - CookiePolicy names and scopes the session and csrf cookies. On
//     localhost and preview deployments the cookie domain is the hostname;
//     elsewhere it is the registrable domain so subdomains share the session.
//
// HTTP:
//   - RegisterAuthRoutes mounts the csrf, callback, session, signout and me
//     routes under /api/auth.
package auth
