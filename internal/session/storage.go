package session

// Storage persists raw session records under string keys. Backends are
// swappable: a directory of JSON files for single-device deployments, or
// redis when several processes share one step counter.
type Storage interface {
	// Load returns the stored bytes for key, or (nil, nil) when the key
	// has never been written.
	Load(key string) ([]byte, error)

	// Save overwrites the stored bytes for key.
	Save(key string, data []byte) error
}
