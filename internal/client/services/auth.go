// Package services contains the application services of the Plateful client:
// record mutations, the sync coordinator with its reconciler and conflict
// resolver, and authentication against the remote store.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plateful/plateful/internal/client/client"
	"github.com/plateful/plateful/internal/client/repositories/metadata"
	"github.com/plateful/plateful/internal/common"
)

// AuthService supplies the credential attached to every remote call. Token
// issuance itself happens on the remote side; this service only obtains,
// stores and inspects the bearer token.
type AuthService interface {
	// Login authenticates the curator and persists the token locally.
	Login(ctx context.Context, curatorID string, password []byte) error

	// Token returns the stored credential. It reports common.ErrTokenExpired
	// when the token's exp claim has passed, so callers can prompt for a
	// fresh login instead of burning a doomed request.
	Token(ctx context.Context) (string, error)

	// CuratorID returns the curator the stored credential belongs to.
	CuratorID(ctx context.Context) (string, error)

	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	meta   metadata.Repository
	now    func() time.Time
}

func NewAuthService(apiClient client.Client, meta metadata.Repository) AuthService {
	return &authService{client: apiClient, meta: meta, now: time.Now}
}

func (a *authService) Login(ctx context.Context, curatorID string, password []byte) error {
	token, err := a.client.Login(ctx, curatorID, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.meta.Set(ctx, metadata.KeyAccessToken, []byte(token)); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	if err := a.meta.Set(ctx, metadata.KeyCuratorID, []byte(curatorID)); err != nil {
		return fmt.Errorf("curator saving error: %w", err)
	}
	return nil
}

func (a *authService) Token(ctx context.Context) (string, error) {
	value, err := a.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", common.ErrorUnauthorized
	}

	token := string(value)
	if expired, err := tokenExpired(token, a.now()); err == nil && expired {
		return "", common.ErrTokenExpired
	}
	return token, nil
}

// tokenExpired inspects the exp claim without verifying the signature;
// verification is the issuer's job. Opaque tokens pass through untouched.
func tokenExpired(token string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false, common.ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, nil
	}
	return now.After(exp.Time), nil
}

func (a *authService) CuratorID(ctx context.Context) (string, error) {
	value, err := a.meta.Get(ctx, metadata.KeyCuratorID)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", common.ErrorUnauthorized
	}
	return string(value), nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Logout drops the stored credential; records and pending work stay put.
func (a *authService) Logout(ctx context.Context) error {
	return a.meta.Delete(ctx, metadata.KeyAccessToken)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
