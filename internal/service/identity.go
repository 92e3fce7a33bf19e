package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

const minPasswordLength = 6

// IdentityOptions tunes an IdentityStore.
type IdentityOptions struct {
	// Origin identifies this instance on the shared change feed. Defaults to a random id.
	Origin string
	// VerifyLatency delays seller email verification to model a round trip.
	VerifyLatency time.Duration
	Now           func() time.Time
	NewCode       func() (string, error)
}

// IdentityStore owns the signed-in session, durable user profiles and the
// pending seller requests. The session is mirrored to the durable store when
// the user asked to be remembered and to the tab store otherwise.
type IdentityStore struct {
	mu      sync.RWMutex
	session *domain.Session
	pending []domain.PendingSellerRequest

	local   repository.Store
	tab     repository.Store
	watcher repository.Watcher

	localSession *repository.Document[domain.Session]
	tabSession   *repository.Document[domain.Session]
	pendingDoc   *repository.Document[[]domain.PendingSellerRequest]
	codeDoc      *repository.Document[domain.VerificationCode]

	auth   AuthGateway
	notify NotificationSink
	text   Translator
	logger *zap.Logger

	unsubscribe func()

	origin        string
	verifyLatency time.Duration
	now           func() time.Time
	newCode       func() (string, error)
}

// NewIdentityStore restores any persisted session and the pending requests.
func NewIdentityStore(
	ctx context.Context,
	local repository.Durable,
	tab repository.Store,
	auth AuthGateway,
	text Translator,
	notify NotificationSink,
	logger *zap.Logger,
	opts IdentityOptions,
) (*IdentityStore, error) {
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewCode == nil {
		opts.NewCode = NewVerificationCode
	}

	s := &IdentityStore{
		local:         local,
		tab:           tab,
		watcher:       local,
		localSession:  repository.NewDocument[domain.Session](local, repository.KeySession),
		tabSession:    repository.NewDocument[domain.Session](tab, repository.KeySession),
		pendingDoc:    repository.NewDocument[[]domain.PendingSellerRequest](local, repository.KeyPendingSellerRequests),
		codeDoc:       repository.NewDocument[domain.VerificationCode](local, repository.KeyVerificationCode),
		auth:          auth,
		notify:        notify,
		text:          text,
		logger:        logger,
		origin:        opts.Origin,
		verifyLatency: opts.VerifyLatency,
		now:           opts.Now,
		newCode:       opts.NewCode,
	}

	if err := s.restoreSession(ctx); err != nil {
		return nil, err
	}
	pending, _, err := s.pendingDoc.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.pending = pending
	s.unsubscribe = auth.OnSessionChange(s.providerChanged)
	return s, nil
}

func (s *IdentityStore) restoreSession(ctx context.Context) error {
	for _, doc := range []*repository.Document[domain.Session]{s.tabSession, s.localSession} {
		sess, ok, err := doc.Load(ctx)
		if err != nil {
			return err
		}
		if !ok || sess.User.ID == "" {
			continue
		}
		if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
			s.logger.Info("Discarding expired session", zap.String("user_id", sess.User.ID))
			if err := doc.Clear(s.tag(ctx)); err != nil {
				return err
			}
			continue
		}
		// The durable profile is authoritative for everything but credentials.
		if profile, ok, err := s.loadProfile(ctx, sess.User.ID); err != nil {
			return err
		} else if ok {
			sess.User = profile
		}
		s.session = &sess
		return nil
	}
	return nil
}

// Origin identifies this store's writes on the change feed.
func (s *IdentityStore) Origin() string {
	return s.origin
}

// CurrentUser returns the signed-in user.
func (s *IdentityStore) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.User{}, false
	}
	return s.session.User, true
}

// Session returns the signed-in session including credentials.
func (s *IdentityStore) Session() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}

// Authenticate resolves a bearer token to the signed-in user. The token must
// be valid and belong to the current session.
func (s *IdentityStore) Authenticate(token string) (domain.User, error) {
	identity, err := s.auth.VerifyToken(token)
	if err != nil {
		return domain.User{}, &errors.ErrAuthenticationRequired{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.User.ID != identity.UID {
		return domain.User{}, &errors.ErrAuthenticationRequired{}
	}
	return s.session.User, nil
}

// Register creates an account with the provider and signs it in.
func (s *IdentityStore) Register(ctx context.Context, in RegisterInput) (domain.Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return domain.Session{}, &errors.ErrValidationFailed{Field: "email", Message: "a valid email is required"}
	}
	if len(in.Password) < minPasswordLength {
		return domain.Session{}, &errors.ErrValidationFailed{Field: "password", Message: "must be at least 6 characters"}
	}
	if in.Password != in.ConfirmPassword {
		return domain.Session{}, &errors.ErrValidationFailed{Field: "confirmPassword", Message: "passwords do not match"}
	}

	provided, err := s.auth.Register(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		return domain.Session{}, err
	}
	return s.establish(ctx, provided, in.RememberMe, func(u *domain.User) {
		if in.DisplayName != "" {
			u.DisplayName = in.DisplayName
		}
		if in.Phone != "" {
			u.Phone = in.Phone
		}
	})
}

// Login signs in with email and password.
func (s *IdentityStore) Login(ctx context.Context, email, password string, rememberMe bool) (domain.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.Session{}, &errors.ErrValidationFailed{Message: "email and password are required"}
	}
	provided, err := s.auth.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Session{}, err
	}
	return s.establish(ctx, provided, rememberMe, nil)
}

// LoginWithProvider signs in through an OAuth provider such as "google".
func (s *IdentityStore) LoginWithProvider(ctx context.Context, provider string, rememberMe bool) (domain.Session, error) {
	provided, err := s.auth.SignInWithProvider(ctx, provider)
	if err != nil {
		return domain.Session{}, err
	}
	return s.establish(ctx, provided, rememberMe, nil)
}

// establish merges the provider identity with the durable profile and
// mirrors the session.
func (s *IdentityStore) establish(ctx context.Context, provided *ProviderSession, rememberMe bool, edit func(*domain.User)) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var local *domain.User
	profile, ok, err := s.loadProfile(ctx, provided.Identity.UID)
	if err != nil {
		return domain.Session{}, err
	}
	if ok {
		local = &profile
	}
	user := MergeIdentity(provided.Identity, local)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	if edit != nil {
		edit(&user)
	}

	sess := domain.Session{
		User:       user,
		Token:      provided.Token,
		ExpiresAt:  provided.ExpiresAt,
		RememberMe: rememberMe,
	}
	if err := s.writeSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	s.session = &sess

	s.logger.Info("Signed in", zap.String("user_id", user.ID), zap.Bool("remember_me", rememberMe))
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "auth.welcome", Body: s.text.T("auth.welcome", user.DisplayName)})
	return sess, nil
}

// writeSession persists the profile and the session mirror, clearing the
// mirror in the store that is not in use.
func (s *IdentityStore) writeSession(ctx context.Context, sess domain.Session) error {
	ctx = s.tag(ctx)
	profile, err := repository.Encode(sess.User)
	if err != nil {
		return err
	}
	payload, err := repository.Encode(sess)
	if err != nil {
		return err
	}

	if sess.RememberMe {
		if err := repository.Commit(ctx, s.local,
			repository.Write{Key: repository.UserDataKey(sess.User.ID), Value: profile},
			repository.Write{Key: repository.KeySession, Value: payload},
		); err != nil {
			return err
		}
		return s.tabSession.Clear(ctx)
	}

	if err := repository.Commit(ctx, s.local,
		repository.Write{Key: repository.UserDataKey(sess.User.ID), Value: profile},
		repository.Write{Key: repository.KeySession},
	); err != nil {
		return err
	}
	return s.tab.Put(ctx, repository.KeySession, payload)
}

// Logout ends the session locally and with the provider. Durable profiles survive.
func (s *IdentityStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	uid := ""
	if s.session != nil {
		uid = s.session.User.ID
	}
	if err := s.clearSessionLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	// The provider reports the sign-out back through OnSessionChange, so no
	// lock may be held here.
	if err := s.auth.SignOut(ctx); err != nil {
		s.logger.Warn("Provider sign-out failed", zap.Error(err))
	}
	if uid != "" {
		s.logger.Info("Signed out", zap.String("user_id", uid))
		s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "auth.loggedOut", Body: s.text.T("auth.loggedOut")})
	}
	return nil
}

func (s *IdentityStore) clearSessionLocked(ctx context.Context) error {
	ctx = s.tag(ctx)
	if err := s.tabSession.Clear(ctx); err != nil {
		return err
	}
	if err := s.localSession.Clear(ctx); err != nil {
		return err
	}
	s.session = nil
	return nil
}

// SendPasswordReset asks the provider to email a reset link.
func (s *IdentityStore) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &errors.ErrValidationFailed{Field: "email", Message: "is required"}
	}
	return s.auth.SendPasswordResetEmail(ctx, email)
}

// UpdateProfile edits the signed-in user's profile.
func (s *IdentityStore) UpdateProfile(ctx context.Context, update ProfileUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.User{}, &errors.ErrAuthenticationRequired{Action: "update the profile"}
	}

	user := s.session.User
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return domain.User{}, &errors.ErrValidationFailed{Field: "displayName", Message: "must not be empty"}
		}
		user.DisplayName = name
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.PhotoURL != nil {
		user.PhotoURL = *update.PhotoURL
	}
	if update.Address != nil {
		if err := ValidateAddress(*update.Address); err != nil {
			return domain.User{}, err
		}
		addr := *update.Address
		user.Address = &addr
	}

	if err := s.commitUserLocked(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// commitUserLocked persists the signed-in user's profile together with extra
// durable writes, then refreshes the session mirror.
func (s *IdentityStore) commitUserLocked(ctx context.Context, user domain.User, extra ...repository.Write) error {
	ctx = s.tag(ctx)
	profile, err := repository.Encode(user)
	if err != nil {
		return err
	}
	sess := *s.session
	sess.User = user
	payload, err := repository.Encode(sess)
	if err != nil {
		return err
	}

	writes := append([]repository.Write{{Key: repository.UserDataKey(user.ID), Value: profile}}, extra...)
	if sess.RememberMe {
		writes = append(writes, repository.Write{Key: repository.KeySession, Value: payload})
	}
	if err := repository.Commit(ctx, s.local, writes...); err != nil {
		return err
	}
	if !sess.RememberMe {
		// The tab mirror is a cache of the durable profile; it is rebuilt on restore.
		if err := s.tab.Put(ctx, repository.KeySession, payload); err != nil {
			s.logger.Warn("Failed to refresh session mirror", zap.Error(err))
		}
	}
	s.session = &sess
	return nil
}

// Run applies changes written by other instances sharing the durable store
// until ctx is done.
func (s *IdentityStore) Run(ctx context.Context) {
	for change := range s.watcher.Watch(ctx) {
		if change.Origin == s.origin {
			continue
		}
		s.applyChange(ctx, change)
	}
}

// Close stops following provider sign-outs.
func (s *IdentityStore) Close() {
	s.unsubscribe()
}

// providerChanged clears the session when the provider reports a sign-out
// made outside this store.
func (s *IdentityStore) providerChanged(identity *ProviderIdentity) {
	if identity != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return
	}
	s.logger.Info("Provider ended the session", zap.String("user_id", s.session.User.ID))
	if err := s.clearSessionLocked(context.Background()); err != nil {
		s.logger.Warn("Failed to clear session", zap.Error(err))
	}
}

func (s *IdentityStore) applyChange(ctx context.Context, change repository.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case change.Key == repository.KeyPendingSellerRequests:
		pending, _, err := s.pendingDoc.Load(ctx)
		if err != nil {
			s.logger.Warn("Failed to reload pending seller requests", zap.Error(err))
			return
		}
		s.pending = pending
		s.logger.Debug("Reloaded pending seller requests", zap.Int("count", len(pending)))

	case s.session != nil && change.Key == repository.UserDataKey(s.session.User.ID):
		profile, ok, err := s.loadProfile(ctx, s.session.User.ID)
		if err != nil || !ok {
			return
		}
		sess := *s.session
		sess.User = profile
		s.session = &sess

	case change.Key == repository.KeySession:
		sess, ok, err := s.localSession.Load(ctx)
		if err != nil {
			return
		}
		switch {
		case !ok && s.session != nil && s.session.RememberMe:
			// Signed out in another instance.
			s.session = nil
		case ok && s.session == nil:
			s.session = &sess
		}
	}
}

// PendingRequests returns the seller requests awaiting owner action.
func (s *IdentityStore) PendingRequests() []domain.PendingSellerRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PendingSellerRequest(nil), s.pending...)
}

func (s *IdentityStore) loadProfile(ctx context.Context, uid string) (domain.User, bool, error) {
	return repository.NewDocument[domain.User](s.local, repository.UserDataKey(uid)).Load(ctx)
}

func (s *IdentityStore) tag(ctx context.Context) context.Context {
	return repository.WithOrigin(ctx, s.origin)
}

// MergeIdentity combines a provider identity with the locally persisted
// profile. The provider is authoritative for id, email and email
// verification; every other local field wins, and provider values only fill
// fields the profile leaves empty.
func MergeIdentity(provided ProviderIdentity, local *domain.User) domain.User {
	var user domain.User
	if local != nil {
		user = *local
	}

	user.ID = provided.UID
	if provided.Email != "" {
		user.Email = provided.Email
	}
	user.EmailVerified = provided.EmailVerified

	if user.DisplayName == "" {
		user.DisplayName = provided.DisplayName
	}
	if user.DisplayName == "" {
		user.DisplayName, _, _ = strings.Cut(user.Email, "@")
	}
	if user.PhotoURL == "" {
		user.PhotoURL = provided.PhotoURL
	}
	return user
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
