package service

import "github.com/jafarshop/storefront/internal/domain"

// CheckoutInput is the confirmed checkout form.
type CheckoutInput struct {
	Items         []domain.CartItem    `json:"items"`
	Address       domain.Address       `json:"address"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	// UserID links the order to a signed-in user. Guest orders leave it empty.
	UserID string `json:"-"`
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
	Phone           string `json:"phone"`
	RememberMe      bool   `json:"rememberMe"`
}

// ProfileUpdate carries the profile fields a user may edit. Nil fields are kept.
type ProfileUpdate struct {
	DisplayName *string         `json:"displayName,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	PhotoURL    *string         `json:"photoURL,omitempty"`
	Address     *domain.Address `json:"address,omitempty"`
}
