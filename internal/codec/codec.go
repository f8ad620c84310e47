// Package codec converts datasets to and from their durable byte form.
//
// Two encodings are provided: an exact columnar binary format (Arrow IPC)
// and a delimited-text format (CSV) with documented type coercion on decode.
// Both are pure transformations; corrupt input decodes to an error wrapping
// ErrCorrupt, which cache strategies treat as a miss.
package codec

import (
	"errors"

	"github.com/electwix/chartcache/internal/dataset"
)

// ErrCorrupt marks payloads that cannot be decoded. Callers recover by
// falling through to a fresh fetch; it is never fatal.
var ErrCorrupt = errors.New("corrupt cache payload")

// Codec encodes a dataset into bytes and back.
type Codec interface {
	// Name returns the codec identifier, also used as the file extension
	// by file-backed cache strategies.
	Name() string

	// Encode serializes the dataset.
	Encode(d *dataset.Dataset) ([]byte, error)

	// Decode deserializes a payload produced by Encode. Corrupt or
	// truncated input returns an error wrapping ErrCorrupt.
	Decode(data []byte) (*dataset.Dataset, error)
}
