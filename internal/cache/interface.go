package cache

// Cache is a flat key/value blob store. Get reports absence with ok=false and a nil
// error; a non-nil error is always an *Error and callers treat it as a miss.
type Cache interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Has(key string) bool // Check if an entry exists without reading it
	Clear() error
}
