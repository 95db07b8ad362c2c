package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"parley/internal/model"
	"parley/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNoCredential  = errors.New("no credential presented")
	ErrBadCredential = errors.New("credential could not be verified")
)

// Authenticator resolves a connection credential to a user. The credential
// is a JWT carrying the user's email; the user record itself lives with the
// external identity system and is only read here.
type Authenticator struct {
	secret []byte
	users  repo.UserRepository
	logger *zap.Logger
}

func NewAuthenticator(secret string, users repo.UserRepository, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		users:  users,
		logger: logger,
	}
}

// ResolveToken verifies the token and loads the user behind it.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNoCredential
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrBadCredential
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrBadCredential
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, ErrBadCredential
	}

	return a.users.GetUserByEmail(ctx, email)
}

// ResolveWebSocket reads the credential offered as the websocket
// subprotocol token. Failure yields a nil user: the connection is still
// accepted and then dropped as anonymous by the hub.
func (a *Authenticator) ResolveWebSocket(r *http.Request) *model.User {
	protocols := websocket.Subprotocols(r)
	if len(protocols) == 0 {
		a.logger.Warn("ws client connecting without credential")
		return nil
	}

	user, err := a.ResolveToken(r.Context(), protocols[0])
	if err != nil {
		a.logger.Warn("ws client connecting with bad token", zap.Error(err))
		return nil
	}
	return user
}

// ResolveBearer reads the credential from an Authorization header.
func (a *Authenticator) ResolveBearer(r *http.Request) (*model.User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, ErrNoCredential
	}
	return a.ResolveToken(r.Context(), token)
}
