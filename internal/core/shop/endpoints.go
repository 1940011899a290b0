package shop

import (
	"net/url"
	"strings"
)

// Endpoint paths relative to the API base URL.
const (
	PathLogin          = "/auth/login"
	PathRegister       = "/auth/register"
	PathLogout         = "/auth/logout"
	PathRefresh        = "/auth/refresh"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"

	PathProfile        = "/user/profile"
	PathChangePassword = "/user/change-password"
	PathUserOrders     = "/user/orders"
	PathFavorites      = "/user/favorites"

	PathProducts      = "/products"
	PathProductDetail = "/products/:id"
	PathCategories    = "/products/categories"
	PathProductSearch = "/products/search"

	PathCart       = "/cart"
	PathCartAdd    = "/cart/add"
	PathCartUpdate = "/cart/update"
	PathCartRemove = "/cart/remove/:id"
	PathCartClear  = "/cart/clear"

	PathOrders      = "/orders"
	PathOrderDetail = "/orders/:id"
	PathOrderCancel = "/orders/:id/cancel"

	PathPaymentCreate  = "/payment/create"
	PathPaymentVerify  = "/payment/verify"
	PathPaymentMethods = "/payment/methods"
)

// SocialProviders lists the supported social login providers in display order.
var SocialProviders = []string{"google", "apple", "github", "wechat", "qq", "telegram"}

// SocialLoginPath returns the redirect path for provider, or false when the
// provider is unsupported.
func SocialLoginPath(provider string) (string, bool) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	for _, p := range SocialProviders {
		if p == provider {
			return "/auth/" + p, true
		}
	}
	return "", false
}

// withID substitutes :id in path with the escaped id.
func withID(path, id string) string {
	return strings.Replace(path, ":id", url.PathEscape(id), 1)
}

// withQuery appends params to path in sorted key order.
func withQuery(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	return path + "?" + values.Encode()
}
