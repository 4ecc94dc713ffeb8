// Package fingerprint derives content hashes for compiled callables from their
// instruction bytes and the globals they reference by name.
package fingerprint
