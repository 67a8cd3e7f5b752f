// Package auth is the authentication and session layer of the member portal:
// credential verification, token issuance, session materialization and the
// role gate.
//
// Login:
//   - UserProvider.VerifyCredentials checks an email and password against the
//     stored bcrypt hash. Auther.Login reports an unknown email and a wrong
//     password with the same ErrInvalidCredentials.
//
// Tokens:
//   - ClaimIssuer.Issue takes a sealed IssueTrigger. FreshIssue builds claims
//     from a freshly loaded User. RefreshMerge merges a PartialClaims profile
//     update over an existing Session and keeps sub, iss, aud, iat, exp and
//     jti, so the same update always produces the same token.
//   - ClaimIssuer.Materialize verifies a raw HS256 token into a *Session.
//
// Authorization:
//   - Gate.Authorize(session, min) compares the session role against the
//     hierarchy MEMBER < ADMIN < SUPER_ADMIN. A nil session is anonymous.
//     Denials are always ErrAccessDenied.
//
// Activity sinks:
//   - ActivitySink receives login, refresh and registration events. Sinks run
//     best-effort (errors are logged) and back the Prometheus counters.
package auth
