// Package common contains shared constants and sentinel errors used across
// the sable history server and its client.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// ChatHistoryCommand is the protocol command served by the history server.
const ChatHistoryCommand = "CHATHISTORY"
