package dto

import "github.com/dukasync/storesync/internal/domain/model"

// ProductResponse is the storefront view of one catalog variant.
type ProductResponse struct {
	Key            string  `json:"key"`
	RemoteID       string  `json:"remote_id,omitempty"`
	Name           string  `json:"name"`
	Size           string  `json:"size"`
	Category       string  `json:"category,omitempty"`
	Price          float64 `json:"price"`
	EffectivePrice float64 `json:"effective_price"`
	Discount       int     `json:"discount,omitempty"`
	Quantity       int     `json:"quantity"`
	HasImage       bool    `json:"has_image"`
}

// ProductFromModel maps a catalog record to its API shape.
func ProductFromModel(p model.Product) ProductResponse {
	return ProductResponse{
		Key:            p.Key(),
		RemoteID:       p.IDs.Remote,
		Name:           p.Name,
		Size:           p.Size,
		Category:       p.Category,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		Discount:       p.Discount,
		Quantity:       p.Quantity,
		HasImage:       len(p.Image) > 0,
	}
}

// ProductRequest is the admin create/update payload. Image travels base64
// encoded via the standard []byte JSON representation.
type ProductRequest struct {
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Discount int     `json:"discount"`
	Quantity int     `json:"quantity"`
	Image    []byte  `json:"image,omitempty"`
}

// ToModel maps the request onto a catalog record.
func (r ProductRequest) ToModel() model.Product {
	return model.Product{
		Name:     r.Name,
		Size:     r.Size,
		Category: r.Category,
		Price:    r.Price,
		Discount: r.Discount,
		Quantity: r.Quantity,
		Image:    r.Image,
	}
}
