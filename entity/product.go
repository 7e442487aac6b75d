package entity

// ProductInfo is the catalog view of a sellable product.
type ProductInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
	Url   string `json:"url,omitempty"`
}
