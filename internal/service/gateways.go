package service

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/pkg/errors"
)

// ProviderIdentity is what the identity provider knows about a user.
type ProviderIdentity struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
}

// ProviderSession is a signed-in identity with its credentials.
type ProviderSession struct {
	Identity  ProviderIdentity
	Token     string
	ExpiresAt time.Time
}

// AuthGateway is the boundary to the third-party identity provider.
type AuthGateway interface {
	SignIn(ctx context.Context, email, password string) (*ProviderSession, error)
	Register(ctx context.Context, email, password, displayName string) (*ProviderSession, error)
	SignOut(ctx context.Context) error
	// OnSessionChange calls fn with the current identity, or nil after sign-out.
	OnSessionChange(fn func(*ProviderIdentity)) (unsubscribe func())
	SignInWithProvider(ctx context.Context, provider string) (*ProviderSession, error)
	SendPasswordResetEmail(ctx context.Context, email string) error
	VerifyToken(token string) (*ProviderIdentity, error)
}

// PaymentGateway authorizes payment at checkout.
type PaymentGateway interface {
	Authorize(ctx context.Context, method domain.PaymentMethod, amount decimal.Decimal, currency string) error
}

// OfflinePayments accepts cash on delivery. Card is accepted without a charge
// since no processor is integrated.
type OfflinePayments struct{}

func (OfflinePayments) Authorize(ctx context.Context, method domain.PaymentMethod, amount decimal.Decimal, currency string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !method.IsValid() {
		return &errors.ErrValidationFailed{Field: "paymentMethod", Message: "unsupported payment method"}
	}
	if amount.IsNegative() {
		return &errors.ErrValidationFailed{Field: "amount", Message: "must not be negative"}
	}
	return nil
}

// NotificationKind separates in-app toasts from outbound email.
type NotificationKind string

const (
	NotificationToast NotificationKind = "toast"
	NotificationEmail NotificationKind = "email"
)

// Notification is a user-visible message.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Key       string           `json:"key"`
	Recipient string           `json:"recipient,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Body      string           `json:"body"`
}

// NotificationSink delivers notifications.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification)
}

// LogSink writes notifications to the log.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notification) {
	s.Logger.Info("Notification",
		zap.String("kind", string(n.Kind)),
		zap.String("key", n.Key),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
	)
}

// FanOut delivers every notification to each sink in order.
type FanOut []NotificationSink

func (f FanOut) Notify(ctx context.Context, n Notification) {
	for _, sink := range f {
		sink.Notify(ctx, n)
	}
}

// Invoice is the document model of an order confirmation. Amounts are in
// the order currency.
type Invoice struct {
	OrderID      string
	OrderedAt    time.Time
	CustomerName string
	Phone        string
	Address      domain.Address
	Lines        []InvoiceLine
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Currency     string
	Symbol       string
	Language     domain.Language
}

// InvoiceLine is one priced row of an invoice.
type InvoiceLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// InvoiceRenderer formats an invoice into a document.
type InvoiceRenderer interface {
	Render(w io.Writer, inv Invoice) error
	ContentType() string
}
