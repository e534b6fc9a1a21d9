package catalog

// DefaultGroup labels products whose row had no group value.
const DefaultGroup = "Uncategorized"

// Grouped is one display group of products.
type Grouped struct {
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// GroupProducts buckets products by their group label, preserving first-seen
// group order and the product order within each group.
func GroupProducts(products []Product) []Grouped {
	index := make(map[string]int)
	var groups []Grouped

	for _, p := range products {
		name := p.Group
		if name == "" {
			name = DefaultGroup
		}

		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Grouped{Name: name})
		}
		groups[i].Products = append(groups[i].Products, p)
	}

	return groups
}
