package service_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/memory"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

var checkoutTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type captureRenderer struct {
	got *service.Invoice
}

func (r *captureRenderer) Render(w io.Writer, inv service.Invoice) error {
	r.got = &inv
	_, err := io.WriteString(w, "invoice "+inv.OrderID)
	return err
}

func (r *captureRenderer) ContentType() string { return "text/plain" }

type declinePayments struct{}

func (declinePayments) Authorize(ctx context.Context, method domain.PaymentMethod, amount decimal.Decimal, currency string) error {
	return &errors.ErrValidationFailed{Field: "card", Message: "declined"}
}

type orderFixture struct {
	store    *memory.Store
	settings *service.SettingsStore
	cart     *service.CartStore
	orders   *service.OrderStore
	renderer *captureRenderer
	notes    *recorder
}

func newOrderFixture(t *testing.T, payments service.PaymentGateway) *orderFixture {
	t.Helper()
	ctx := context.Background()
	f := &orderFixture{store: memory.New(), renderer: &captureRenderer{}, notes: &recorder{}}
	f.settings = newSettings(t, f.store)

	var err error
	f.cart, err = service.NewCartStore(ctx, f.store, f.settings, f.notes, zap.NewNop())
	require.NoError(t, err)

	opts := service.DefaultOrderOptions()
	opts.Now = func() time.Time { return checkoutTime }
	f.orders, err = service.NewOrderStore(ctx, f.store, f.cart, f.settings, payments, f.renderer, f.notes, zap.NewNop(), opts)
	require.NoError(t, err)
	return f
}

func (f *orderFixture) checkout(t *testing.T) domain.Order {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cart.AddToCart(ctx, product("a", "Cable", "10"), 2))
	require.NoError(t, f.cart.AddToCart(ctx, product("b", "Case", "5"), 1))

	order, err := f.orders.CreateOrder(ctx, service.CheckoutInput{
		Items:         f.cart.Items(),
		Address:       riyadh(),
		PaymentMethod: domain.PaymentMethodCash,
		UserID:        "user-1",
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	id, err := uuid.Parse(order.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	assert.True(t, order.Total.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "SAR", order.Currency)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, checkoutTime, order.OrderedAt)
	assert.Equal(t, checkoutTime.AddDate(0, 0, 7), order.EstimatedDelivery)
	assert.Len(t, order.Items, 2)

	assert.Empty(t, f.cart.Items())
	assert.Contains(t, f.notes.keys(), "order.placed")

	got, err := f.orders.GetOrderByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, f.orders.OrdersForUser("user-1"), 1)
	assert.Empty(t, f.orders.OrdersForUser("someone-else"))
}

func TestOrderKeepsCheckoutCurrency(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	require.NoError(t, f.settings.SetCurrency(ctx, "USD"))
	order := f.checkout(t)

	require.NoError(t, f.settings.SetCurrency(ctx, "SAR"))
	got, err := f.orders.GetOrderByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(25)), "total stays in base currency")
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	require.NoError(t, f.cart.AddToCart(ctx, product("a", "Cable", "10"), 1))
	items := f.cart.Items()

	cases := map[string]service.CheckoutInput{
		"no items":        {Address: riyadh(), PaymentMethod: domain.PaymentMethodCash},
		"zero quantity":   {Items: []domain.CartItem{{Product: product("a", "Cable", "10")}}, Address: riyadh(), PaymentMethod: domain.PaymentMethodCash},
		"bad payment":     {Items: items, Address: riyadh(), PaymentMethod: "cheque"},
		"missing address": {Items: items, PaymentMethod: domain.PaymentMethodCard},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, in)
			assert.True(t, errors.IsValidationFailed(err))
		})
	}
	assert.Empty(t, f.orders.Orders())
	assert.Len(t, f.cart.Items(), 1, "cart survives a rejected checkout")
}

func TestCreateOrderDeclinedPayment(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, declinePayments{})
	require.NoError(t, f.cart.AddToCart(ctx, product("a", "Cable", "10"), 1))

	_, err := f.orders.CreateOrder(ctx, service.CheckoutInput{Items: f.cart.Items(), Address: riyadh(), PaymentMethod: domain.PaymentMethodCard})
	assert.True(t, errors.IsValidationFailed(err))
	assert.Empty(t, f.orders.Orders())
	assert.Len(t, f.cart.Items(), 1)
}

func TestCreateOrderFailedSaveKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	require.NoError(t, f.cart.AddToCart(ctx, product("a", "Cable", "10"), 1))
	f.store.FailWrites(repository.KeyOrders, assert.AnError)

	_, err := f.orders.CreateOrder(ctx, service.CheckoutInput{Items: f.cart.Items(), Address: riyadh(), PaymentMethod: domain.PaymentMethodCash})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.orders.Orders())
	assert.Len(t, f.cart.Items(), 1)
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	processing, err := f.orders.AdvanceStatus(ctx, order.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, processing.Status)

	_, err = f.orders.AdvanceStatus(ctx, order.ID, "lost")
	assert.True(t, errors.IsValidationFailed(err))

	_, err = f.orders.AdvanceStatus(ctx, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, order.ID)
	assert.True(t, errors.IsInvalidStateTransition(err))

	_, err = f.orders.AdvanceStatus(ctx, order.ID, domain.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestCancelPendingOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	cancelled, err := f.orders.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Contains(t, f.notes.keys(), "order.cancelled")

	_, err = f.orders.CancelOrder(ctx, order.ID)
	assert.True(t, errors.IsInvalidStateTransition(err))
}

func TestOrdersRestoredFromStore(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	restored, err := service.NewOrderStore(ctx, f.store, f.cart, f.settings, service.OfflinePayments{}, f.renderer, f.notes, zap.NewNop(), service.DefaultOrderOptions())
	require.NoError(t, err)
	got, err := restored.GetOrderByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAR", got.Currency)
	assert.True(t, got.Total.Equal(order.Total))
}

func TestInvoice(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	inv, err := f.orders.Invoice(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "SAR", inv.Currency)
	require.Len(t, inv.Lines, 2)
	assert.True(t, inv.Lines[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(25)))
	assert.True(t, inv.Shipping.Equal(decimal.NewFromInt(25)))
	assert.True(t, inv.Tax.Equal(decimal.RequireFromString("7.5")), inv.Tax.String())
	assert.True(t, inv.Total.Equal(decimal.RequireFromString("57.5")), inv.Total.String())

	_, err = f.orders.Invoice(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestInvoiceWaivesShippingAboveThreshold(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	require.NoError(t, f.cart.AddToCart(ctx, product("w", "Watch", "200"), 1))
	order, err := f.orders.CreateOrder(ctx, service.CheckoutInput{Items: f.cart.Items(), Address: riyadh(), PaymentMethod: domain.PaymentMethodCard})
	require.NoError(t, err)

	inv, err := f.orders.Invoice(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, inv.Shipping.IsZero())
	assert.True(t, inv.Tax.Equal(decimal.NewFromInt(30)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(230)))
}

func TestInvoiceConvertsToOrderCurrency(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	require.NoError(t, f.settings.SetCurrency(ctx, "USD"))
	require.NoError(t, f.cart.AddToCart(ctx, product("w", "Watch", "375"), 1))
	order, err := f.orders.CreateOrder(ctx, service.CheckoutInput{Items: f.cart.Items(), Address: riyadh(), PaymentMethod: domain.PaymentMethodCard})
	require.NoError(t, err)

	inv, err := f.orders.Invoice(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "$", inv.Symbol)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(100)), inv.Subtotal.String())
	assert.True(t, inv.Tax.Equal(decimal.NewFromInt(15)), inv.Tax.String())
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(115)), inv.Total.String())
}

func TestRenderInvoice(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, service.OfflinePayments{})
	order := f.checkout(t)

	var buf bytes.Buffer
	require.NoError(t, f.orders.RenderInvoice(ctx, order.ID, &buf))
	assert.Equal(t, "invoice "+order.ID, buf.String())
	require.NotNil(t, f.renderer.got)
	assert.Equal(t, "Sara Ali", f.renderer.got.CustomerName)
	assert.Equal(t, "text/plain", f.orders.InvoiceContentType())
}
