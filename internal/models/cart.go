package models

import "github.com/pujakriti/checkout-service/internal/apperr"

// Cart is the mutable pre-order selection for one user, held in Redis until
// checkout consumes it. The JSON field names are the storefront wire format.
type Cart struct {
	ID     string     `json:"id"`
	UserID int64      `json:"userId"`
	Lines  []CartLine `json:"cartItems"`
}

// CartLine is a single cart entry. Exactly one of ProductID or BundleID must
// be set; Target() enforces that and converts to the tagged form.
type CartLine struct {
	ID        int64   `json:"cartItemId"`
	ProductID *int64  `json:"productId,omitempty"`
	BundleID  *int64  `json:"bundleId,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

// TargetKind discriminates what a line refers to.
type TargetKind string

const (
	TargetProduct TargetKind = "product"
	TargetBundle  TargetKind = "bundle"
)

// LineTarget is the validated product-or-bundle reference of a line. Using a
// tagged value instead of two nullable ids makes the both-set/neither-set
// states unrepresentable past validation.
type LineTarget struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

// ProductTarget builds a product-typed line target.
func ProductTarget(id int64) LineTarget {
	return LineTarget{Kind: TargetProduct, ID: id}
}

// BundleTarget builds a bundle-typed line target.
func BundleTarget(id int64) LineTarget {
	return LineTarget{Kind: TargetBundle, ID: id}
}

// Target validates the product/bundle exclusivity invariant and returns the
// tagged reference.
func (l CartLine) Target() (LineTarget, error) {
	switch {
	case l.ProductID != nil && l.BundleID != nil:
		return LineTarget{}, apperr.NewValidationError("cartItems", "cart line must not reference both a product and a bundle")
	case l.ProductID != nil:
		return ProductTarget(*l.ProductID), nil
	case l.BundleID != nil:
		return BundleTarget(*l.BundleID), nil
	default:
		return LineTarget{}, apperr.NewValidationError("cartItems", "cart line must reference a product or a bundle")
	}
}
