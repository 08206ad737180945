// Package client owns the connection to the matching service.
//
// Ownership boundary:
// - transport selection (TCP / UDP / multicast) and dialing
// - wire format detection via probe orders
// - the send/receive facade over both codecs
// - retry/backoff primitives
//
// Transport and format are resolved once at dial time and frozen for the
// life of the client; there is no mid-session re-negotiation.
package client
