// Package auth issues and validates the signed session credentials.
//
// Two credentials exist per session: a short-lived access token carrying the
// identity claims and the full effective permission snapshot, and a
// long-lived refresh token carrying identity only. Refresh re-resolves
// permissions against the live store before minting a new access token,
// which bounds snapshot staleness to one access-token lifetime.
package auth
