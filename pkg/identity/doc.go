// Package identity carries the caller of a request through its context.
//
// The HTTP API stores an Identity on every request: the JWT subject when a
// bearer token was presented, and always the client IP. The WhoCan facade
// reads it back to attribute audit events.
//
//	id := identity.FromClaims(claims).WithRemoteIP(ip)
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
package identity
