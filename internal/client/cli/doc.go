// Package cli implements the sable-history command-line client.
//
// Commands
//
//	chathistory SUBCOMMAND TARGET [REF...] LIMIT   run a CHATHISTORY query
//	targets [--since d] [--limit n]                list recent conversations
//	ping                                           check the server
//	ingest [FILE]                                  send JSON events, one per line
//	expire --older-than d                          drop old history
//	snapshot                                       save a snapshot now
//	token --user u [--role r] [--ttl d]            mint an access token
//
// Global flags select the endpoint (--addr), the access token (--token, or
// "-" to be prompted) and a JSON or YAML config file (--config).
package cli
