package httpserver

import (
	"bazaar/internal/domain"
)

// IsAdmin reports whether the user holds the admin role.
func IsAdmin(u *domain.User) bool {
	return u != nil && u.Role == domain.RoleAdmin
}

// CanManageProduct reports whether the user may mutate the product: the
// seller who owns it, or an admin.
func CanManageProduct(u *domain.User, p *domain.Product) bool {
	if u == nil || p == nil {
		return false
	}
	return u.ID == p.SellerID || IsAdmin(u)
}
