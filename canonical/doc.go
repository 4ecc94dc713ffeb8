// Package canonical encodes arbitrary Go values into deterministic byte
// sequences suitable for hashing.
//
// # Overview
//
// The encoder walks a value with reflection and writes msgpack. Equal values
// produce equal bytes regardless of how they were built:
//
//   - Maps: entries sorted by their encoded key bytes
//   - Structs: type name plus exported fields in declaration order
//   - Pointers and interfaces: dereferenced, nil encodes as msgpack nil
//   - Integers: compact encoding, so int(5) and int64(5) are the same bytes
//   - time.Time: msgpack time extension in UTC
//
// Types that implement msgpack.CustomEncoder, msgpack.Marshaler or
// encoding.BinaryMarshaler are encoded by their own method.
//
// # Failure
//
// Values without a deterministic form (funcs, channels, unsafe pointers,
// complex numbers, reference cycles, marshalers that fail or panic) return an
// error instead of a lossy encoding. Callers that hash values decide what a
// failure means; the fingerprint package drops the value.
//
//	b, err := canonical.Encode(map[string]any{"b": 2, "a": 1})
//	if errors.Is(err, canonical.ErrUnsupported) {
//		// value cannot take part in the hash
//	}
package canonical
