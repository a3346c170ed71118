// Package remote runs commands on a storage host over SSH.
//
// Transports:
//   - Exec: the system ssh binary (honours ~/.ssh/config, agent, ControlMaster).
//   - Native: an in-process golang.org/x/crypto/ssh client.
//
// Invariant: payloads travel on the command's stdin, never inside the command
// string. Only paths are interpolated, and always through Quote.
package remote
