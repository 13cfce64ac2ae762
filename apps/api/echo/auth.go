package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
)

const (
	contextTokenKey = "accountToken"
	tokenAudience   = "Admissions"
)

var nowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
// The role is signed along with the account ID and is never read from anywhere else.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64           `json:"oriat,omitempty"`
	Email        string          `json:"email,omitempty"`
	Variant      account.Variant `json:"variant"`
	Role         account.Role    `json:"role"`
}

// Actor is the verified caller the claims stand for.
func (c Claims) Actor() account.Actor {
	return account.Actor{AccountID: c.Subject, Role: c.Role}
}

// Auth issues and verifies session tokens.
type Auth struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func NewAuth(conf *core.Config) *Auth {
	return &Auth{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// Middleware rejects requests without a valid token.
func (a *Auth) Middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.jwtConfig)
}

// Claims derives the session claims of `acc`. The role comes from the stored record.
func (a *Auth) Claims(acc account.Account, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(a.conf.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acc.Email,
		Variant:      acc.Variant,
		Role:         acc.SessionRole(),
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (a *Auth) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (account.Actor, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return account.Actor{}, err
	}
	return claims.Actor(), nil
}

// refresh reissues a token for the session account, re-reading its role from the store.
func (a *Auth) refresh(ctx echo.Context, svc *account.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	acc, err := svc.GetByID(ctx.Request().Context(), claims.Variant, claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding account by ID")
	}

	token, err := a.GenerateToken(a.Claims(acc, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
