// Package memory persists per-user conversation sessions.
//
// Persistence model:
//   - One JSON document (UserRecord) per user, addressed by storage.Key.
//   - Every operation reads the whole document and mutators write it back whole.
//   - Operations for one user run one at a time; different users never contend.
//   - Storage and decode failures degrade to an empty record and are logged, never returned.
//   - At most one conversation is active (ended == null); the last such entry wins.
package memory
