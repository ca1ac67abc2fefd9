package cache

type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (c *NoopCache) Get(key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *NoopCache) Set(key string, value []byte) error {
	return nil
}

func (c *NoopCache) Has(key string) bool {
	return false
}

func (c *NoopCache) Clear() error {
	return nil
}
