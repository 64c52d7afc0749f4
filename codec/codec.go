// Package codec centralizes the encoding of persisted collection data.
//
// Snapshot segments and manifests record the codec name they were written
// with, so a persisted collection is always decoded with the codec that
// produced it regardless of the process default.
package codec

// Codec encodes and decodes persisted values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name. Snapshot loading uses
// it to select the codec recorded in the manifest.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}
