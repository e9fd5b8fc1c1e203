// Package storage keeps illustration files referenced by node content.
package storage

// Provider is the interface for illustration file operations. Names are plain
// file names without directory components.
type Provider interface {
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically writes content under name, replacing any previous file.
	Write(name string, content []byte) error
	// Exists reports whether the named file is present.
	Exists(name string) (bool, error)
}
