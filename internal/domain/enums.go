package domain

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCancelled
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCancelled
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// IsCancellable reports whether the customer may still cancel the order.
func (s OrderStatus) IsCancellable() bool {
	return s.CanTransitionTo(OrderStatusCancelled)
}

// PaymentMethod is how the customer pays at checkout
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCard
}

// SellerStatus is a user's position in the seller onboarding workflow
type SellerStatus string

const (
	SellerStatusNone             SellerStatus = "none"
	SellerStatusRequested        SellerStatus = "requested"
	SellerStatusEmailVerified    SellerStatus = "email_verified"
	SellerStatusIdentityVerified SellerStatus = "identity_verified"
	SellerStatusApproved         SellerStatus = "approved"
	SellerStatusRejected         SellerStatus = "rejected"
)

// IsPending reports whether the request is waiting on owner action.
func (s SellerStatus) IsPending() bool {
	switch s {
	case SellerStatusRequested, SellerStatusEmailVerified, SellerStatusIdentityVerified:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a seller workflow transition is valid.
// A rejected request lands back in none, so none accepts a fresh request.
func (s SellerStatus) CanTransitionTo(newStatus SellerStatus) bool {
	switch s {
	case SellerStatusNone, SellerStatusRejected:
		return newStatus == SellerStatusRequested
	case SellerStatusRequested:
		return newStatus == SellerStatusRequested ||
			newStatus == SellerStatusEmailVerified ||
			newStatus == SellerStatusRejected
	case SellerStatusEmailVerified:
		return newStatus == SellerStatusIdentityVerified ||
			newStatus == SellerStatusRejected
	case SellerStatusIdentityVerified:
		return newStatus == SellerStatusApproved ||
			newStatus == SellerStatusRejected
	case SellerStatusApproved:
		return false
	default:
		return false
	}
}

// Language is a supported UI language
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// IsValid checks if the language is supported
func (l Language) IsValid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

// IsRTL reports whether the language is written right to left
func (l Language) IsRTL() bool {
	return l == LanguageArabic
}

// Theme is the UI colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// IsValid checks if the theme is supported
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}
