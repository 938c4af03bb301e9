// Package storage persists the SDK's buffered collections to local storage.
//
// Every collection (events, sessions, exceptions, user details, device id)
// lives under its own name in a Backend. Values are CBOR encoded with core
// deterministic encoding, compressed with zstd and framed with a BLAKE3
// digest so that a damaged file is detected on load instead of decoded into
// garbage.
//
// Storage is a durability backstop, not a live store: the in-memory queues
// are the source of truth and loads never fail, they fall back to empty.
package storage
