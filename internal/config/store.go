// Package config holds daemon settings and the blob stores presets persist
// through.
package config

import "errors"

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("config: store closed")

// BlobStore persists opaque documents by key.
type BlobStore interface {
	// LoadBlob returns the document saved under key, or nil and no error if
	// there is none.
	LoadBlob(key string) ([]byte, error)

	// SaveBlob replaces the document under key. It returns once the data is
	// durable; there is no write-behind.
	SaveBlob(key string, data []byte) error

	// Path describes where documents live.
	Path() string
}
