// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLineQuantity caps the quantity of a single cart line. With the cap no
// sum of quantities in a cart can overflow int.
const MaxLineQuantity = 1_000_000

// CartItem is one product line in a cart. Quantity is always in (0, MaxLineQuantity].
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the per-user aggregate. Items and the saved snapshot are stored as
// JSON documents on the cart row; Version guards concurrent writers.
type Cart struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`
	UserID              string     `gorm:"uniqueIndex;not null;size:36" json:"userId"`
	Items               []CartItem `gorm:"serializer:json;type:text" json:"items"`
	AppliedDiscountCode *string    `gorm:"size:64" json:"appliedDiscountCode"`
	SavedItems          []CartItem `gorm:"serializer:json;type:text" json:"savedItems,omitempty"`
	Version             int64      `gorm:"not null;default:0" json:"version"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// BeforeCreate assigns an id when the caller did not
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AfterFind normalizes a missing item list to an empty one
func (c *Cart) AfterFind(tx *gorm.DB) error {
	c.Normalize()
	return nil
}

// NewCart returns an empty cart owned by userID
func NewCart(userID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Normalize makes Items non-nil so it serializes as []
func (c *Cart) Normalize() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
}

// Reset clears items, discount and snapshot
func (c *Cart) Reset() {
	c.Items = []CartItem{}
	c.AppliedDiscountCode = nil
	c.SavedItems = nil
}

// QuantityOf returns the quantity held for productID, 0 when absent
func (c *Cart) QuantityOf(productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// AddItem increments an existing line or appends a new one
func (c *Cart) AddItem(productID string, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
}

// RemoveItem drops every line for productID. It reports whether anything was removed.
func (c *Cart) RemoveItem(productID string) bool {
	kept := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(c.Items)
	c.Items = kept
	return removed
}

// SetQuantity overwrites the quantity of productID's line. It reports false
// when the product is not in the cart.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Empty removes all items. The discount code and snapshot are kept.
func (c *Cart) Empty() {
	c.Items = []CartItem{}
}

// SaveSnapshot stores a copy of the current items
func (c *Cart) SaveSnapshot() {
	c.SavedItems = cloneItems(c.Items)
	if c.SavedItems == nil {
		c.SavedItems = []CartItem{}
	}
}

// RestoreSnapshot replaces the items with a copy of the snapshot, or with
// nothing when no snapshot was ever saved.
func (c *Cart) RestoreSnapshot() {
	c.Items = cloneItems(c.SavedItems)
	if c.Items == nil {
		c.Items = []CartItem{}
	}
}

// ItemCount is the sum of all quantities
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ProductIDs returns the distinct product ids in item order
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]bool, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// Clone returns a deep copy sharing no slices or pointers with c
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = cloneItems(c.Items)
	out.SavedItems = cloneItems(c.SavedItems)
	if c.AppliedDiscountCode != nil {
		code := *c.AppliedDiscountCode
		out.AppliedDiscountCode = &code
	}
	return &out
}

func cloneItems(items []CartItem) []CartItem {
	if items == nil {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
