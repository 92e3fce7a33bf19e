package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

// OrderOptions holds checkout pricing rules. Money is in the base currency.
type OrderOptions struct {
	DeliveryDays          int
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	VATRate               decimal.Decimal
	Now                   func() time.Time
}

// DefaultOrderOptions delivers in seven days with 15% VAT.
func DefaultOrderOptions() OrderOptions {
	return OrderOptions{
		DeliveryDays:          7,
		ShippingFee:           decimal.NewFromInt(25),
		FreeShippingThreshold: decimal.NewFromInt(200),
		VATRate:               decimal.RequireFromString("0.15"),
	}
}

// OrderStore owns the placed orders, newest last.
type OrderStore struct {
	mu     sync.RWMutex
	orders []domain.Order
	doc    *repository.Document[[]domain.Order]

	cart     *CartStore
	settings *SettingsStore
	payments PaymentGateway
	invoices InvoiceRenderer
	notify   NotificationSink
	logger   *zap.Logger
	opts     OrderOptions
}

// NewOrderStore restores the persisted orders.
func NewOrderStore(
	ctx context.Context,
	store repository.Store,
	cart *CartStore,
	settings *SettingsStore,
	payments PaymentGateway,
	invoices InvoiceRenderer,
	notify NotificationSink,
	logger *zap.Logger,
	opts OrderOptions,
) (*OrderStore, error) {
	if opts.DeliveryDays <= 0 {
		opts.DeliveryDays = 7
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &OrderStore{
		doc:      repository.NewDocument[[]domain.Order](store, repository.KeyOrders),
		cart:     cart,
		settings: settings,
		payments: payments,
		invoices: invoices,
		notify:   notify,
		logger:   logger,
		opts:     opts,
	}
	orders, _, err := s.doc.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.orders = orders
	return s, nil
}

// CreateOrder places an order for the given lines. The total is frozen in the
// base currency and tagged with the currency active at checkout. The cart is
// cleared once the order is stored.
func (s *OrderStore) CreateOrder(ctx context.Context, in CheckoutInput) (domain.Order, error) {
	if len(in.Items) == 0 {
		return domain.Order{}, &errors.ErrValidationFailed{Field: "items", Message: "order has no items"}
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return domain.Order{}, &errors.ErrValidationFailed{Field: "quantity", Message: "must be at least 1"}
		}
	}
	if !in.PaymentMethod.IsValid() {
		return domain.Order{}, &errors.ErrValidationFailed{Field: "paymentMethod", Message: "unsupported payment method"}
	}
	if err := ValidateAddress(in.Address); err != nil {
		return domain.Order{}, err
	}

	total := SumItems(in.Items)
	currency := s.settings.Currency()
	if err := s.payments.Authorize(ctx, in.PaymentMethod, total, currency); err != nil {
		return domain.Order{}, fmt.Errorf("authorize payment: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Order{}, fmt.Errorf("generate order id: %w", err)
	}
	now := s.opts.Now()
	order := domain.Order{
		ID:                id.String(),
		UserID:            in.UserID,
		Items:             append([]domain.CartItem(nil), in.Items...),
		Total:             total,
		Currency:          currency,
		Status:            domain.OrderStatusPending,
		PaymentMethod:     in.PaymentMethod,
		Address:           in.Address,
		OrderedAt:         now,
		EstimatedDelivery: now.AddDate(0, 0, s.opts.DeliveryDays),
		UpdatedAt:         now,
	}

	s.mu.Lock()
	next := append(append([]domain.Order(nil), s.orders...), order)
	if err := s.doc.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return domain.Order{}, err
	}
	s.orders = next
	s.mu.Unlock()

	if err := s.cart.ClearCart(ctx); err != nil {
		s.logger.Warn("Failed to clear cart after checkout", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("total", total.String()),
		zap.String("currency", currency),
		zap.String("payment_method", string(in.PaymentMethod)),
	)
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "order.placed", Body: s.settings.T("order.placed", order.ID)})
	return order, nil
}

// GetOrderByID looks up one order.
func (s *OrderStore) GetOrderByID(id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.orders[i], nil
	}
	return domain.Order{}, &errors.ErrNotFound{Resource: "order", ID: id}
}

// Orders returns all orders in placement order.
func (s *OrderStore) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Order(nil), s.orders...)
}

// OrdersForUser returns the orders placed by uid.
func (s *OrderStore) OrdersForUser(uid string) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.UserID == uid {
			out = append(out, o)
		}
	}
	return out
}

// CancelOrder cancels a pending or processing order.
func (s *OrderStore) CancelOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.transition(ctx, id, domain.OrderStatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "order.cancelled", Body: s.settings.T("order.cancelled", order.ID)})
	return order, nil
}

// AdvanceStatus moves an order along its fulfilment lifecycle.
func (s *OrderStore) AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.IsValid() {
		return domain.Order{}, &errors.ErrValidationFailed{Field: "status", Message: fmt.Sprintf("unknown order status %q", status)}
	}
	return s.transition(ctx, id, status)
}

func (s *OrderStore) transition(ctx context.Context, id string, to domain.OrderStatus) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Order{}, &errors.ErrNotFound{Resource: "order", ID: id}
	}
	from := s.orders[i].Status
	if !from.CanTransitionTo(to) {
		return domain.Order{}, &errors.ErrInvalidStateTransition{From: from, To: to}
	}

	next := append([]domain.Order(nil), s.orders...)
	next[i].Status = to
	next[i].UpdatedAt = s.opts.Now()
	if err := s.doc.Save(ctx, next); err != nil {
		return domain.Order{}, err
	}
	s.orders = next

	s.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return next[i], nil
}

// Invoice prices an order for its confirmation document. Shipping is waived
// at or above the free shipping threshold and VAT applies to goods plus
// shipping. Amounts are converted into the order currency.
func (s *OrderStore) Invoice(ctx context.Context, id string) (Invoice, error) {
	if err := ctx.Err(); err != nil {
		return Invoice{}, err
	}
	order, err := s.GetOrderByID(id)
	if err != nil {
		return Invoice{}, err
	}

	convert := func(amount decimal.Decimal) (decimal.Decimal, error) {
		return s.settings.ConvertTo(amount, order.Currency)
	}

	inv := Invoice{
		OrderID:      order.ID,
		OrderedAt:    order.OrderedAt,
		CustomerName: order.Address.FullName,
		Phone:        order.Address.Phone,
		Address:      order.Address,
		Currency:     order.Currency,
		Symbol:       s.settings.Symbol(order.Currency),
		Language:     s.settings.Language(),
	}
	for _, item := range order.Items {
		unit, err := convert(item.Product.Price)
		if err != nil {
			return Invoice{}, err
		}
		amount, err := convert(item.LineTotal())
		if err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			Amount:    amount,
		})
	}

	shipping := s.opts.ShippingFee
	if !s.opts.FreeShippingThreshold.IsZero() && order.Total.GreaterThanOrEqual(s.opts.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := order.Total.Add(shipping).Mul(s.opts.VATRate)

	if inv.Subtotal, err = convert(order.Total); err != nil {
		return Invoice{}, err
	}
	if inv.Shipping, err = convert(shipping); err != nil {
		return Invoice{}, err
	}
	if inv.Tax, err = convert(tax); err != nil {
		return Invoice{}, err
	}
	inv.Total = inv.Subtotal.Add(inv.Shipping).Add(inv.Tax)
	return inv, nil
}

// RenderInvoice writes the invoice document of an order to w.
func (s *OrderStore) RenderInvoice(ctx context.Context, id string, w io.Writer) error {
	inv, err := s.Invoice(ctx, id)
	if err != nil {
		return err
	}
	if err := s.invoices.Render(w, inv); err != nil {
		return fmt.Errorf("render invoice %s: %w", id, err)
	}
	return nil
}

// InvoiceContentType is the media type RenderInvoice produces.
func (s *OrderStore) InvoiceContentType() string {
	return s.invoices.ContentType()
}

func (s *OrderStore) indexOf(id string) int {
	for i, o := range s.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}
