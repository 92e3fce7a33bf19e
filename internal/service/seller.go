package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/pkg/errors"
)

const minSellerAge = 18

// NewVerificationCode returns a random six digit code.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidateSellerRequest checks the application form.
func ValidateSellerRequest(req domain.SellerRequest) error {
	if strings.TrimSpace(req.StoreName) == "" {
		return &errors.ErrValidationFailed{Field: "storeName", Message: "is required"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return &errors.ErrValidationFailed{Field: "phone", Message: "is required"}
	}
	if !strings.Contains(req.Email, "@") {
		return &errors.ErrValidationFailed{Field: "email", Message: "a valid email is required"}
	}
	if req.Age < minSellerAge {
		return &errors.ErrValidationFailed{Field: "age", Message: "sellers must be at least 18"}
	}
	return nil
}

// RequestSellerAccount records a seller application for the signed-in user,
// issues a verification code and emails it to the request address.
func (s *IdentityStore) RequestSellerAccount(ctx context.Context, req domain.SellerRequest) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return &errors.ErrAuthenticationRequired{Action: "request a seller account"}
	}
	if err := ValidateSellerRequest(req); err != nil {
		s.mu.Unlock()
		return err
	}
	user := s.session.User
	from := user.Seller.Status()
	if !from.CanTransitionTo(domain.SellerStatusRequested) {
		s.mu.Unlock()
		return &errors.ErrInvalidStateTransition{From: from, To: domain.SellerStatusRequested}
	}

	code, err := s.newCode()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.now()
	user.Seller = domain.SellerProfile{Request: &req, RequestedAt: &now}

	pending, err := s.freshPending(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	pending = upsertPending(pending, domain.PendingSellerRequest{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Request:     req,
		Status:      domain.SellerStatusRequested,
		RequestedAt: now,
	})

	pendingWrite, err := encodeWrite(repository.KeyPendingSellerRequests, pending)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	codeWrite, err := encodeWrite(repository.KeyVerificationCode, domain.VerificationCode{UserID: user.ID, Code: code, IssuedAt: now})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.commitUserLocked(ctx, user, pendingWrite, codeWrite); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = pending
	s.mu.Unlock()

	s.logger.Info("Seller account requested", zap.String("user_id", user.ID), zap.String("store_name", req.StoreName))
	s.sendCode(ctx, req.Email, code)
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "seller.requested", Body: s.text.T("seller.requested", req.StoreName)})
	return nil
}

// VerifySellerEmail checks code against the most recently issued one. A
// match marks the signed-in user's email as verified for selling.
func (s *IdentityStore) VerifySellerEmail(ctx context.Context, code string) error {
	if err := sleepCtx(ctx, s.verifyLatency); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return &errors.ErrAuthenticationRequired{Action: "verify a seller email"}
	}
	user := s.session.User

	issued, ok, err := s.codeDoc.Load(ctx)
	if err != nil {
		return err
	}
	if !ok || issued.UserID != user.ID || issued.Code != strings.TrimSpace(code) {
		return &errors.ErrVerificationMismatch{}
	}

	from := user.Seller.Status()
	if !from.CanTransitionTo(domain.SellerStatusEmailVerified) {
		return &errors.ErrInvalidStateTransition{From: from, To: domain.SellerStatusEmailVerified}
	}
	user.Seller.SellerVerified = true

	pending, err := s.freshPending(ctx)
	if err != nil {
		return err
	}
	if i := indexPending(pending, user.ID); i >= 0 {
		pending[i].Status = domain.SellerStatusEmailVerified
	}
	pendingWrite, err := encodeWrite(repository.KeyPendingSellerRequests, pending)
	if err != nil {
		return err
	}

	// A consumed code cannot be replayed.
	consumed := repository.Write{Key: repository.KeyVerificationCode}
	if err := s.commitUserLocked(ctx, user, pendingWrite, consumed); err != nil {
		return err
	}
	s.pending = pending
	s.logger.Info("Seller email verified", zap.String("user_id", user.ID))
	s.notify.Notify(ctx, Notification{Kind: NotificationToast, Key: "seller.emailVerified", Body: s.text.T("seller.emailVerified")})
	return nil
}

// ResendVerificationCode issues a new code, invalidating the previous one.
func (s *IdentityStore) ResendVerificationCode(ctx context.Context) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return &errors.ErrAuthenticationRequired{Action: "resend a verification code"}
	}
	user := s.session.User
	if status := user.Seller.Status(); status != domain.SellerStatusRequested {
		s.mu.Unlock()
		return &errors.ErrInvalidStateTransition{From: status, To: domain.SellerStatusEmailVerified}
	}

	code, err := s.newCode()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.codeDoc.Save(s.tag(ctx), domain.VerificationCode{UserID: user.ID, Code: code, IssuedAt: s.now()})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("Verification code reissued", zap.String("user_id", user.ID))
	s.sendCode(ctx, user.Seller.Request.Email, code)
	return nil
}

// VerifySellerIdentity marks an email-verified request as identity checked.
// Only approved sellers may call it.
func (s *IdentityStore) VerifySellerIdentity(ctx context.Context, userID string) error {
	return s.reviewSellerRequest(ctx, userID, domain.SellerStatusIdentityVerified)
}

// ApproveSellerRequest grants seller status to an identity-verified applicant.
// Only approved sellers may call it.
func (s *IdentityStore) ApproveSellerRequest(ctx context.Context, userID string) error {
	return s.reviewSellerRequest(ctx, userID, domain.SellerStatusApproved)
}

// RejectSellerRequest discards a pending application and resets the
// applicant's seller profile. Only approved sellers may call it.
func (s *IdentityStore) RejectSellerRequest(ctx context.Context, userID string) error {
	return s.reviewSellerRequest(ctx, userID, domain.SellerStatusRejected)
}

func (s *IdentityStore) reviewSellerRequest(ctx context.Context, userID string, to domain.SellerStatus) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return &errors.ErrAuthenticationRequired{Action: "review seller requests"}
	}
	caller := s.session.User
	if !caller.Seller.SellerApproved {
		s.mu.Unlock()
		return &errors.ErrPermissionDenied{Action: "review seller requests"}
	}

	pending, err := s.freshPending(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexPending(pending, userID)
	if i < 0 {
		s.mu.Unlock()
		return &errors.ErrNotFound{Resource: "seller request", ID: userID}
	}
	entry := pending[i]
	if !entry.Status.CanTransitionTo(to) {
		s.mu.Unlock()
		return &errors.ErrInvalidStateTransition{From: entry.Status, To: to}
	}

	target, err := s.applicantProfile(ctx, entry, caller)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	var extra []repository.Write
	switch to {
	case domain.SellerStatusIdentityVerified:
		target.Seller.SellerIdentityVerified = true
		pending[i].Status = to
	case domain.SellerStatusApproved:
		target.Seller.IsSeller = true
		target.Seller.SellerApproved = true
		pending = removePending(pending, i)
	case domain.SellerStatusRejected:
		target.Seller = domain.SellerProfile{}
		pending = removePending(pending, i)
		issued, ok, err := s.codeDoc.Load(ctx)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if ok && issued.UserID == userID {
			extra = append(extra, repository.Write{Key: repository.KeyVerificationCode})
		}
	}

	pendingWrite, err := encodeWrite(repository.KeyPendingSellerRequests, pending)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	extra = append(extra, pendingWrite)

	if target.ID == caller.ID {
		err = s.commitUserLocked(ctx, target, extra...)
	} else {
		var profile repository.Write
		profile, err = encodeWrite(repository.UserDataKey(target.ID), target)
		if err == nil {
			err = repository.Commit(s.tag(ctx), s.local, append(extra, profile)...)
		}
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pending = pending
	s.mu.Unlock()

	s.logger.Info("Seller request reviewed",
		zap.String("user_id", userID),
		zap.String("status", string(to)),
		zap.String("reviewer_id", caller.ID),
	)

	key := map[domain.SellerStatus]string{
		domain.SellerStatusIdentityVerified: "seller.identityVerified",
		domain.SellerStatusApproved:         "seller.approved",
		domain.SellerStatusRejected:         "seller.rejected",
	}[to]
	body := s.text.T(key, entry.Request.StoreName)
	s.notify.Notify(ctx, Notification{Kind: NotificationEmail, Key: key, Recipient: entry.Request.Email, Subject: body, Body: body})
	return nil
}

// applicantProfile loads the durable profile of the applicant, rebuilding a
// minimal one from the request when the profile is gone.
func (s *IdentityStore) applicantProfile(ctx context.Context, entry domain.PendingSellerRequest, caller domain.User) (domain.User, error) {
	if entry.UserID == caller.ID {
		return caller, nil
	}
	profile, ok, err := s.loadProfile(ctx, entry.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if ok {
		return profile, nil
	}
	req := entry.Request
	requested := entry.RequestedAt
	return domain.User{
		ID:          entry.UserID,
		Email:       entry.Email,
		DisplayName: entry.DisplayName,
		Seller: domain.SellerProfile{
			SellerVerified: entry.Status != domain.SellerStatusRequested,
			Request:        &req,
			RequestedAt:    &requested,
		},
	}, nil
}

func (s *IdentityStore) sendCode(ctx context.Context, recipient, code string) {
	s.notify.Notify(ctx, Notification{
		Kind:      NotificationEmail,
		Key:       "seller.code",
		Recipient: recipient,
		Subject:   s.text.T("seller.code.subject"),
		Body:      s.text.T("seller.code.body", code),
	})
}

// freshPending reads the pending list from the durable store so concurrent
// writers in other instances are not overwritten with a stale copy.
func (s *IdentityStore) freshPending(ctx context.Context) ([]domain.PendingSellerRequest, error) {
	pending, _, err := s.pendingDoc.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func indexPending(pending []domain.PendingSellerRequest, userID string) int {
	for i, p := range pending {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func upsertPending(pending []domain.PendingSellerRequest, entry domain.PendingSellerRequest) []domain.PendingSellerRequest {
	if i := indexPending(pending, entry.UserID); i >= 0 {
		pending[i] = entry
		return pending
	}
	return append(pending, entry)
}

func removePending(pending []domain.PendingSellerRequest, i int) []domain.PendingSellerRequest {
	out := make([]domain.PendingSellerRequest, 0, len(pending)-1)
	out = append(out, pending[:i]...)
	return append(out, pending[i+1:]...)
}

func encodeWrite(key string, value interface{}) (repository.Write, error) {
	payload, err := repository.Encode(value)
	if err != nil {
		return repository.Write{}, err
	}
	return repository.Write{Key: key, Value: payload}, nil
}
