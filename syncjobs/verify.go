package syncjobs

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"coolbot/database"
	"coolbot/models"
)

const (
	// TokenLength is the number of characters in a verification token.
	TokenLength = 16
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 24 * time.Hour

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	ErrNoToken        = errors.New("no verification in progress")
	ErrTokenExpired   = errors.New("verification token expired")
	ErrTokenNotInBio  = errors.New("verification token not found in bio")
	ErrNotContributor = errors.New("not a contributor")
)

// TokenStore persists pending verifications and the contributor roster.
type TokenStore interface {
	SetVerificationToken(ctx context.Context, t models.VerificationToken) error
	VerificationToken(ctx context.Context, userID string) (models.VerificationToken, error)
	DeleteVerificationToken(ctx context.Context, userID string) error
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
	IsContributor(ctx context.Context, login string) (bool, error)
}

// Verifier links a Discord user to a GitHub login by asking them to put a
// one-time token in their profile bio.
type Verifier struct {
	gh    *GitHub
	store TokenStore
	now   func() time.Time
}

// NewVerifier creates a verifier. now defaults to time.Now.
func NewVerifier(gh *GitHub, store TokenStore, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{gh: gh, store: store, now: now}
}

// Issue creates a fresh token for userID, replacing any earlier one.
func (v *Verifier) Issue(ctx context.Context, userID string) (models.VerificationToken, error) {
	token, err := randomToken(TokenLength)
	if err != nil {
		return models.VerificationToken{}, err
	}
	t := models.VerificationToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: v.now().Add(TokenTTL),
	}
	if err := v.store.SetVerificationToken(ctx, t); err != nil {
		return models.VerificationToken{}, err
	}
	return t, nil
}

// Verify checks that login's bio carries the user's token and that login is
// a known contributor. The token is consumed on success and on expiry.
func (v *Verifier) Verify(ctx context.Context, userID, login string) error {
	login = strings.TrimSpace(login)
	t, err := v.store.VerificationToken(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNoToken
	}
	if err != nil {
		return err
	}
	if t.Expired(v.now()) {
		if err := v.store.DeleteVerificationToken(ctx, userID); err != nil {
			return err
		}
		return ErrTokenExpired
	}

	bio, err := v.gh.UserBio(ctx, login)
	if err != nil {
		return err
	}
	if !strings.Contains(bio, t.Token) {
		return fmt.Errorf("%s: %w", login, ErrTokenNotInBio)
	}

	ok, err := v.store.IsContributor(ctx, login)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", login, ErrNotContributor)
	}
	return v.store.DeleteVerificationToken(ctx, userID)
}

// PurgeExpired removes tokens that are past their expiry.
func (v *Verifier) PurgeExpired(ctx context.Context) (int64, error) {
	return v.store.PurgeExpiredTokens(ctx, v.now())
}

func randomToken(n int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		b.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
