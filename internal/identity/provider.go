// Package identity is a self-hosted identity provider behind the storefront's
// AuthGateway. Accounts live in the durable store with bcrypt password hashes
// and sessions are HS256 JWTs.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/pkg/errors"
)

var _ service.AuthGateway = (*Provider)(nil)

// Account is a stored credential record.
type Account struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	DisplayName   string    `json:"displayName"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Provider      string    `json:"provider"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Federation resolves a sign-in with an external provider such as "google".
type Federation func(ctx context.Context) (service.ProviderIdentity, error)

// Options configures a Provider.
type Options struct {
	Secret  []byte
	TTL     time.Duration
	Latency time.Duration
	// Mailer receives password reset emails. Optional.
	Mailer service.NotificationSink
	Text   service.Translator
}

// Claims is the JWT payload of a session token.
type Claims struct {
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Provider signs users in against accounts kept in a repository.Store.
type Provider struct {
	mu          sync.Mutex
	accounts    *repository.Document[map[string]Account]
	federations map[string]Federation
	current     *service.ProviderIdentity
	listeners   map[int]func(*service.ProviderIdentity)
	nextID      int

	opts   Options
	logger *zap.Logger
}

// NewProvider creates a provider storing accounts under the authAccounts key.
func NewProvider(store repository.Store, opts Options, logger *zap.Logger) *Provider {
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	return &Provider{
		accounts:    repository.NewDocument[map[string]Account](store, repository.KeyAuthAccounts),
		federations: make(map[string]Federation),
		listeners:   make(map[int]func(*service.ProviderIdentity)),
		opts:        opts,
		logger:      logger,
	}
}

// RegisterFederation enables SignInWithProvider for name.
func (p *Provider) RegisterFederation(name string, fn Federation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.federations[strings.ToLower(name)] = fn
}

// CreateAccount stores a password account without signing it in.
func (p *Provider) CreateAccount(ctx context.Context, email, password, displayName string) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createAccountLocked(ctx, email, password, displayName)
}

func (p *Provider) createAccountLocked(ctx context.Context, email, password, displayName string) (Account, error) {
	key := normalizeEmail(email)
	accounts, err := p.loadAccounts(ctx)
	if err != nil {
		return Account{}, err
	}
	if _, exists := accounts[key]; exists {
		return Account{}, &errors.ErrValidationFailed{Field: "email", Message: "email is already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	account := Account{
		UID:          uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Provider:     "password",
		CreatedAt:    time.Now(),
	}
	accounts[key] = account
	if err := p.accounts.Save(ctx, accounts); err != nil {
		return Account{}, err
	}
	p.logger.Info("Account created", zap.String("uid", account.UID))
	return account, nil
}

// Register creates a password account and signs it in.
func (p *Provider) Register(ctx context.Context, email, password, displayName string) (*service.ProviderSession, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	account, err := p.createAccountLocked(ctx, email, password, displayName)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	return p.startSessionLocked(identityOf(account))
}

// SignIn checks a password against the stored hash.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*service.ProviderSession, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	accounts, err := p.loadAccounts(ctx)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	account, ok := accounts[normalizeEmail(email)]
	if !ok || account.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		p.mu.Unlock()
		return nil, &errors.ErrUnauthorized{Message: "invalid email or password"}
	}
	return p.startSessionLocked(identityOf(account))
}

// SignInWithProvider signs in through a registered federation, creating a
// password-less account on first use.
func (p *Provider) SignInWithProvider(ctx context.Context, provider string) (*service.ProviderSession, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	name := strings.ToLower(provider)
	p.mu.Lock()
	federate, ok := p.federations[name]
	p.mu.Unlock()
	if !ok {
		return nil, &errors.ErrValidationFailed{Field: "provider", Message: fmt.Sprintf("sign-in provider %q is not configured", provider)}
	}

	external, err := federate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s sign-in: %w", name, err)
	}

	p.mu.Lock()
	accounts, err := p.loadAccounts(ctx)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	key := normalizeEmail(external.Email)
	account, exists := accounts[key]
	if !exists {
		account = Account{
			UID:           uuid.NewString(),
			Email:         external.Email,
			DisplayName:   external.DisplayName,
			PhotoURL:      external.PhotoURL,
			EmailVerified: external.EmailVerified,
			Provider:      name,
			CreatedAt:     time.Now(),
		}
		accounts[key] = account
		if err := p.accounts.Save(ctx, accounts); err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.logger.Info("Federated account created", zap.String("uid", account.UID), zap.String("provider", name))
	}

	identity := identityOf(account)
	if identity.PhotoURL == "" {
		identity.PhotoURL = external.PhotoURL
	}
	identity.EmailVerified = identity.EmailVerified || external.EmailVerified
	return p.startSessionLocked(identity)
}

// startSessionLocked issues a token and notifies listeners. It releases p.mu.
func (p *Provider) startSessionLocked(identity service.ProviderIdentity) (*service.ProviderSession, error) {
	now := time.Now()
	expires := now.Add(p.opts.TTL)
	claims := Claims{
		Email:         identity.Email,
		Name:          identity.DisplayName,
		EmailVerified: identity.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.opts.Secret)
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	current := identity
	p.current = &current
	listeners := p.snapshotListenersLocked()
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(&current)
	}
	return &service.ProviderSession{Identity: identity, Token: token, ExpiresAt: expires}, nil
}

// SignOut ends the provider session and tells listeners.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return nil
	}
	p.current = nil
	listeners := p.snapshotListenersLocked()
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
	return nil
}

// OnSessionChange registers fn for later sign-ins and sign-outs.
func (p *Provider) OnSessionChange(fn func(*service.ProviderIdentity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// SendPasswordResetEmail mails reset instructions. Unknown addresses succeed
// silently so the endpoint does not reveal which emails are registered.
func (p *Provider) SendPasswordResetEmail(ctx context.Context, email string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	accounts, err := p.loadAccounts(ctx)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	account, ok := accounts[normalizeEmail(email)]
	if !ok || p.opts.Mailer == nil {
		return nil
	}

	subject, body := "Reset your password", "Follow the link we sent to "+account.Email+" to choose a new password."
	if p.opts.Text != nil {
		subject = p.opts.Text.T("auth.reset.subject")
		body = p.opts.Text.T("auth.reset.body", account.Email)
	}
	p.opts.Mailer.Notify(ctx, service.Notification{
		Kind:      service.NotificationEmail,
		Key:       "auth.reset",
		Recipient: account.Email,
		Subject:   subject,
		Body:      body,
	})
	return nil
}

// VerifyToken validates a session token and returns its identity.
func (p *Provider) VerifyToken(token string) (*service.ProviderIdentity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.opts.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, &errors.ErrUnauthorized{Message: "invalid session token"}
	}
	return &service.ProviderIdentity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		DisplayName:   claims.Name,
	}, nil
}

func (p *Provider) snapshotListenersLocked() []func(*service.ProviderIdentity) {
	out := make([]func(*service.ProviderIdentity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		out = append(out, fn)
	}
	return out
}

func (p *Provider) loadAccounts(ctx context.Context) (map[string]Account, error) {
	accounts, _, err := p.accounts.Load(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = make(map[string]Account)
	}
	return accounts, nil
}

// wait models the provider round trip. Cancelling ctx aborts the call.
func (p *Provider) wait(ctx context.Context) error {
	if p.opts.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.opts.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func identityOf(a Account) service.ProviderIdentity {
	return service.ProviderIdentity{
		UID:           a.UID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
