package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/validate"
)

// UserAPI covers the signed-in user's profile and history.
type UserAPI struct{ *api }

func (u *UserAPI) Profile(ctx context.Context) (*core.Response, error) {
	return u.get(ctx, PathProfile)
}

func (u *UserAPI) UpdateProfile(ctx context.Context, profile map[string]any) (*core.Response, error) {
	return u.put(ctx, PathProfile, profile)
}

// ChangePassword validates only the new password; the old one is checked by
// the server.
func (u *UserAPI) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*core.Response, error) {
	if err := check(requireID("current password", oldPassword), validate.Password(newPassword)); err != nil {
		return nil, err
	}
	return u.post(ctx, PathChangePassword, map[string]any{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	})
}

func (u *UserAPI) Orders(ctx context.Context) (*core.Response, error) {
	return u.get(ctx, PathUserOrders)
}

func (u *UserAPI) Favorites(ctx context.Context) (*core.Response, error) {
	return u.get(ctx, PathFavorites)
}

// ProductAPI reads the catalogue.
type ProductAPI struct{ *api }

// List returns products filtered by params (page, limit, category, ...).
func (p *ProductAPI) List(ctx context.Context, params map[string]string) (*core.Response, error) {
	return p.get(ctx, withQuery(PathProducts, params))
}

func (p *ProductAPI) Detail(ctx context.Context, id string) (*core.Response, error) {
	if err := check(requireID("product id", id)); err != nil {
		return nil, err
	}
	return p.get(ctx, withID(PathProductDetail, strings.TrimSpace(id)))
}

func (p *ProductAPI) Categories(ctx context.Context) (*core.Response, error) {
	return p.get(ctx, PathCategories)
}

func (p *ProductAPI) Search(ctx context.Context, query string) (*core.Response, error) {
	if err := check(requireID("search query", query)); err != nil {
		return nil, err
	}
	return p.get(ctx, withQuery(PathProductSearch, map[string]string{"q": strings.TrimSpace(query)}))
}

// CartAPI manages the server-side cart.
type CartAPI struct{ *api }

func (c *CartAPI) Get(ctx context.Context) (*core.Response, error) {
	return c.get(ctx, PathCart)
}

// Add puts quantity units of productID into the cart. Quantity must be at
// least one.
func (c *CartAPI) Add(ctx context.Context, productID string, quantity int) (*core.Response, error) {
	if err := check(requireID("product id", productID), minQuantity(quantity, 1)); err != nil {
		return nil, err
	}
	return c.post(ctx, PathCartAdd, map[string]any{
		"productId": strings.TrimSpace(productID),
		"quantity":  quantity,
	})
}

// Update sets an item's quantity. Zero is passed through; the server treats
// it as removal.
func (c *CartAPI) Update(ctx context.Context, itemID string, quantity int) (*core.Response, error) {
	if err := check(requireID("cart item id", itemID), minQuantity(quantity, 0)); err != nil {
		return nil, err
	}
	return c.put(ctx, PathCartUpdate, map[string]any{
		"itemId":   strings.TrimSpace(itemID),
		"quantity": quantity,
	})
}

func (c *CartAPI) Remove(ctx context.Context, itemID string) (*core.Response, error) {
	if err := check(requireID("cart item id", itemID)); err != nil {
		return nil, err
	}
	return c.delete(ctx, withID(PathCartRemove, strings.TrimSpace(itemID)))
}

func (c *CartAPI) Clear(ctx context.Context) (*core.Response, error) {
	return c.delete(ctx, PathCartClear)
}

// OrderAPI places and tracks orders.
type OrderAPI struct{ *api }

func (o *OrderAPI) Create(ctx context.Context, order map[string]any) (*core.Response, error) {
	if len(order) == 0 {
		return nil, check(core.Invalid("order is empty"))
	}
	return o.post(ctx, PathOrders, order)
}

func (o *OrderAPI) List(ctx context.Context) (*core.Response, error) {
	return o.get(ctx, PathOrders)
}

func (o *OrderAPI) Detail(ctx context.Context, id string) (*core.Response, error) {
	if err := check(requireID("order id", id)); err != nil {
		return nil, err
	}
	return o.get(ctx, withID(PathOrderDetail, strings.TrimSpace(id)))
}

func (o *OrderAPI) Cancel(ctx context.Context, id string) (*core.Response, error) {
	if err := check(requireID("order id", id)); err != nil {
		return nil, err
	}
	return o.post(ctx, withID(PathOrderCancel, strings.TrimSpace(id)), nil)
}

// PaymentAPI creates and verifies payments.
type PaymentAPI struct{ *api }

// Create starts a payment for orderID. amount is a decimal string with at
// most two places, e.g. "19.99".
func (p *PaymentAPI) Create(ctx context.Context, orderID, amount, method string) (*core.Response, error) {
	if err := check(requireID("order id", orderID), validate.Amount(amount), requireID("payment method", method)); err != nil {
		return nil, err
	}
	return p.post(ctx, PathPaymentCreate, map[string]any{
		"orderId": strings.TrimSpace(orderID),
		"amount":  strings.TrimSpace(amount),
		"method":  strings.TrimSpace(method),
	})
}

func (p *PaymentAPI) Verify(ctx context.Context, paymentID string) (*core.Response, error) {
	if err := check(requireID("payment id", paymentID)); err != nil {
		return nil, err
	}
	return p.post(ctx, PathPaymentVerify, map[string]any{"paymentId": strings.TrimSpace(paymentID)})
}

func (p *PaymentAPI) Methods(ctx context.Context) (*core.Response, error) {
	return p.get(ctx, PathPaymentMethods)
}

func minQuantity(quantity, minimum int) core.ValidationResult {
	if quantity < minimum {
		return core.Invalid(fmt.Sprintf("quantity must be at least %d", minimum))
	}
	return core.Valid()
}
