// Package codec defines how cached values are serialized. Entries are
// value-copied through a Codec on every store write, so no shared mutable
// entity graph exists outside the store, and pre-mutation snapshots are
// plain byte slices that restore exactly.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
