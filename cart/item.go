package cart

// Item is one line of the cart. ID and Variant together identify it; a nil
// Variant is its own key, distinct from every variant string including "".
type Item struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Variant  *string `json:"variant,omitempty"`
}

// Key is the composite identity of an Item
type Key struct {
	ID         int64
	HasVariant bool
	Variant    string
}

func KeyOf(id int64, variant *string) Key {
	if variant == nil {
		return Key{ID: id}
	}
	return Key{ID: id, HasVariant: true, Variant: *variant}
}

func (i Item) Key() Key {
	return KeyOf(i.ID, i.Variant)
}

// Subtotal is price times quantity
func (i Item) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// VariantLabel is the variant string, or "" when the item has none
func (i Item) VariantLabel() string {
	if i.Variant == nil {
		return ""
	}
	return *i.Variant
}

// Variant returns a pointer to v for building items
func Variant(v string) *string {
	return &v
}
