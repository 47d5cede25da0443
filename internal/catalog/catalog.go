// Package catalog holds the static kit and ingredient catalog.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category groups products on the shop page.
type Category string

const (
	CategoryKits        Category = "Secret Ingredient Kits"
	CategoryIngredients Category = "Basic Ingredients"
)

// Product is a sellable catalog entry.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Emoji        string          `json:"-"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     Category        `json:"category"`
	Image        string          `json:"image"`
	Ingredients  []string        `json:"ingredients"`
	Instructions string          `json:"instructions,omitempty"`
	InStock      bool            `json:"inStock"`
}

// Customizable reports whether shoppers can pick ingredients for the product.
func (p Product) Customizable() bool {
	return p.Category == CategoryKits
}

const productImage = "/assets/product-kit.jpg"

// Products contains every product keyed by id.
var Products = map[int]Product{
	1: {
		ID:           1,
		Name:         "The First Kiss Kit",
		Emoji:        "💋",
		Description:  "Where our love story began. Premium vanilla, Madagascar bourbon, and our secret ingredient.",
		Price:        decimal.RequireFromString("34.99"),
		Category:     CategoryKits,
		Image:        productImage,
		Ingredients:  []string{"Premium Vanilla Extract", "Madagascar Bourbon", "Cake Flour", "Cane Sugar", "Secret Love Ingredient"},
		Instructions: "Step-by-step recipe card included. Bake at 350°F for 30-35 minutes.",
		InStock:      true,
	},
	2: {
		ID:           2,
		Name:         "Anniversary Blend",
		Emoji:        "🍫",
		Description:  "Celebrate every milestone. Rich chocolate, premium cocoa, and love's secret touch.",
		Price:        decimal.RequireFromString("39.99"),
		Category:     CategoryKits,
		Image:        productImage,
		Ingredients:  []string{"Dutch Cocoa Powder", "Dark Chocolate Chips", "Cake Flour", "Brown Sugar", "Secret Love Ingredient"},
		Instructions: "Complete baking guide included with special mixing techniques.",
		InStock:      true,
	},
	3: {
		ID:           3,
		Name:         "Starter Love Kit",
		Emoji:        "💝",
		Description:  "Begin your baking journey. All essentials plus our signature secret ingredient.",
		Price:        decimal.RequireFromString("29.99"),
		Category:     CategoryKits,
		Image:        productImage,
		Ingredients:  []string{"Vanilla Extract", "Cake Flour", "Baking Powder", "Sugar", "Secret Love Ingredient"},
		Instructions: "Beginner-friendly instructions with helpful tips and tricks.",
		InStock:      true,
	},
	4: {
		ID:          4,
		Name:        "Premium Vanilla Extract",
		Emoji:       "🌼",
		Description: "Madagascar bourbon vanilla, the foundation of every great cake.",
		Price:       decimal.RequireFromString("18.99"),
		Category:    CategoryIngredients,
		Image:       productImage,
		Ingredients: []string{"Pure Madagascar Vanilla Beans", "Bourbon"},
		InStock:     true,
	},
	5: {
		ID:          5,
		Name:        "Dutch Cocoa Powder",
		Emoji:       "🟤",
		Description: "Rich, dark cocoa powder for the chocolate lover in your life.",
		Price:       decimal.RequireFromString("22.99"),
		Category:    CategoryIngredients,
		Image:       productImage,
		Ingredients: []string{"100% Dutch-Processed Cocoa"},
		InStock:     true,
	},
	6: {
		ID:          6,
		Name:        "Artisan Cake Flour",
		Emoji:       "🌾",
		Description: "Silky smooth flour for the perfect texture every time.",
		Price:       decimal.RequireFromString("14.99"),
		Category:    CategoryIngredients,
		Image:       productImage,
		Ingredients: []string{"Bleached Wheat Flour"},
		InStock:     true,
	},
}

// displayOrder is the order products appear in listings.
var displayOrder = []int{1, 2, 3, 4, 5, 6}

// All returns all products in display order.
func All() []Product {
	out := make([]Product, 0, len(displayOrder))
	for _, id := range displayOrder {
		if p, ok := Products[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the product with the given id.
func Get(id int) (Product, bool) {
	p, ok := Products[id]
	return p, ok
}

// ByCategory returns products in a category, in display order.
// An empty category returns everything.
func ByCategory(category Category) []Product {
	if category == "" {
		return All()
	}
	out := make([]Product, 0)
	for _, p := range All() {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Search returns products whose name or description contains query,
// case-insensitively.
func Search(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return All()
	}
	out := make([]Product, 0)
	for _, p := range All() {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
