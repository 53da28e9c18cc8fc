package models

// Product is a catalog item stored under Items/{key}.
type Product struct {
	Key         string   `json:"key,omitempty"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Description string   `json:"description,omitempty"`
	Pictures    []string `json:"pictures,omitempty"`
	CategoryID  int      `json:"categoryId"`
	Rating      float64  `json:"rating"`
	Recommended bool     `json:"recommended"`
	Models      []string `json:"models,omitempty"`
}

func (p Product) RemoteKey() string { return p.Key }

func (p Product) WithRemoteKey(key string) Product {
	p.Key = key
	return p
}

// FirstPicture returns the product's cover image or an empty string.
func (p Product) FirstPicture() string {
	if len(p.Pictures) == 0 {
		return ""
	}
	return p.Pictures[0]
}
