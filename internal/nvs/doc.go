// Package nvs implements the clock's persistent key-value storage.
//
// The layout mirrors the non-volatile storage of the original hardware: a
// Partition (a directory) holds independent Namespaces, each persisted as one
// YAML file. Every namespace maps string keys to structured values and can be
// read, written and cleared without touching the others.
//
// # Namespaces
//
//   - wifi_ns: key "net_info", the station Wi-Fi credentials
//   - tz_ns: key "tz_info", the IANA timezone name
//   - prefs_ns: key "hour_format", the 12h/24h display preference
//
// # Semantics
//
// CredentialStore.Load reports a *StorageError when the medium cannot be read
// or the entry cannot be decoded; it never retries. CredentialStore.Save is
// best effort: a failed write is logged and otherwise ignored, so the device
// simply asks for credentials again on the next boot. Deleting a missing key
// is not an error.
//
// # Thread Safety
//
// Writes to a namespace are serialized by the namespace mutex and land on
// disk atomically (temporary file plus rename). The bootstrap orchestrator is
// the only writer of credentials by construction.
package nvs
