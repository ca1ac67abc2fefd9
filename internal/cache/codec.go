package cache

import (
	"bytes"
	"encoding/gob"
)

// GetValue reads key and gob-decodes it into a T.
func GetValue[T any](c Cache, key string) (T, bool, error) {
	var zero T

	data, ok, err := c.Get(key)
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return zero, false, newError("decode", key, err)
	}
	return v, true, nil
}

// SetValue gob-encodes v and stores it under key.
func SetValue[T any](c Cache, key string, v T) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return newError("encode", key, err)
	}
	return c.Set(key, buf.Bytes())
}
