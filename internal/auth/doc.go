// Package auth issues and verifies the bearer tokens that guard the
// downlink control routes.
//
// Tokens are HS256-signed JWTs carrying a subject and a list of scopes.
// There is no user store: operators mint tokens offline with the shared
// secret (see the -issue-token flag of downlinkd) and the API verifies
// them by signature alone.
package auth
