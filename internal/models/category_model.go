package models

// Category groups products in the catalog.
type Category struct {
	Key     string `json:"key,omitempty"`
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Picture string `json:"picture,omitempty"`
}

func (c Category) RemoteKey() string { return c.Key }

func (c Category) WithRemoteKey(key string) Category {
	c.Key = key
	return c
}
