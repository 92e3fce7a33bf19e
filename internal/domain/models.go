package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product. Price is in the base currency.
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	OldPrice    *decimal.Decimal `json:"oldPrice,omitempty"`
	Image       string           `json:"image"`
	Images      []string         `json:"images,omitempty"`
	Category    string           `json:"category"`
	Brand       string           `json:"brand"`
	SellerID    string           `json:"sellerId,omitempty"`
	Rating      float64          `json:"rating"`
	Inventory   int              `json:"inventory"`
	InStock     bool             `json:"inStock"`
	IsNew       bool             `json:"isNew"`
	Featured    bool             `json:"featured"`
	OnSale      bool             `json:"onSale"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CartItem is one cart line. Quantity is always at least 1.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is a delivery address
type Address struct {
	ID         string `json:"id,omitempty"`
	Label      string `json:"label,omitempty"`
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault,omitempty"`
}

// Order represents a placed order. Items and Total are frozen at creation.
type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId,omitempty"`
	Items             []CartItem      `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Currency          string          `json:"currency"`
	Status            OrderStatus     `json:"status"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	Address           Address         `json:"address"`
	OrderedAt         time.Time       `json:"orderDate"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// SellerRequest holds what a user submits when applying to sell
type SellerRequest struct {
	StoreName        string `json:"storeName"`
	StoreDescription string `json:"storeDescription"`
	StoreLogo        string `json:"storeLogo,omitempty"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Age              int    `json:"age"`
	IdentityDocument string `json:"identityDocument,omitempty"`
}

// SellerProfile is the seller onboarding sub-record of a user
type SellerProfile struct {
	IsSeller               bool           `json:"isSeller"`
	SellerVerified         bool           `json:"sellerVerified"`
	SellerApproved         bool           `json:"sellerApproved"`
	SellerIdentityVerified bool           `json:"sellerIdentityVerified"`
	Request                *SellerRequest `json:"sellerRequest,omitempty"`
	RequestedAt            *time.Time     `json:"sellerRequestDate,omitempty"`
}

// Status derives the workflow state from the profile flags.
func (p SellerProfile) Status() SellerStatus {
	switch {
	case p.IsSeller && p.SellerApproved:
		return SellerStatusApproved
	case p.Request == nil:
		return SellerStatusNone
	case p.SellerIdentityVerified:
		return SellerStatusIdentityVerified
	case p.SellerVerified:
		return SellerStatusEmailVerified
	default:
		return SellerStatusRequested
	}
}

// User is a signed-in identity merged with its locally persisted profile
type User struct {
	ID            string        `json:"uid"`
	Email         string        `json:"email"`
	EmailVerified bool          `json:"emailVerified"`
	DisplayName   string        `json:"displayName"`
	PhotoURL      string        `json:"photoURL,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Address       *Address      `json:"address,omitempty"`
	Seller        SellerProfile `json:"seller"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Session is the signed-in state mirrored to the durable store
type Session struct {
	User       User      `json:"user"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	RememberMe bool      `json:"rememberMe"`
}

// PendingSellerRequest is an application awaiting owner action
type PendingSellerRequest struct {
	UserID      string        `json:"userId"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
	Request     SellerRequest `json:"request"`
	Status      SellerStatus  `json:"status"`
	RequestedAt time.Time     `json:"requestedAt"`
}

// VerificationCode is the most recently issued seller email code
type VerificationCode struct {
	UserID   string    `json:"userId"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
}

// AppSettings is the active language/currency pair with derived display values
type AppSettings struct {
	Language       Language `json:"language"`
	Currency       string   `json:"currency"`
	CurrencySymbol string   `json:"currencySymbol"`
	Theme          Theme    `json:"theme"`
	RTL            bool     `json:"rtl"`
}
