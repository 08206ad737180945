// Package wire owns the application message contract shared by both codecs.
//
// Ownership boundary:
// - input (client -> server) and output (server -> client) message types
// - side and kind tag bytes
// - the flat, cache-line-sized Report record produced by decode/parse
package wire
