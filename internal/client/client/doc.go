// Package client is the gRPC client for the history service.
//
// GRPCClient manages a connection, attaches the access token to every call
// through a unary interceptor, and maps gRPC status codes to sentinel
// errors that callers match with errors.Is: ErrUnavailable,
// ErrUnauthorized, common.ErrTokenExpired and common.ErrForbiddenRole.
//
// A CHATHISTORY request the server rejects is not a transport error: it is
// returned as a *FailError carrying the FAIL line.
package client
