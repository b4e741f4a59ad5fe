package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"skillforge/internal/identity/repository"
	pkgerrors "skillforge/pkg/errors"
	pkgrepo "skillforge/pkg/repository"

	"github.com/golang-jwt/jwt/v5"
)

const roleClaim = "role"

// AuthInfo is the authenticated caller extracted from a bearer token.
type AuthInfo struct {
	UserID int64
	Role   repository.Role
}

// Config holds identity service dependencies and settings.
type Config struct {
	Profiles  repository.ProfileRepository
	JWTSecret string
	JWTIssuer string
}

// IdentityService validates bearer tokens and resolves role-specific profiles.
// Token issuance happens elsewhere; this service only consumes tokens.
type IdentityService struct {
	profiles  repository.ProfileRepository
	jwtSecret []byte
	jwtIssuer string
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(cfg Config) (*IdentityService, error) {
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &IdentityService{
		profiles:  cfg.Profiles,
		jwtSecret: []byte(cfg.JWTSecret),
		jwtIssuer: cfg.JWTIssuer,
	}, nil
}

// Authenticate validates a bearer token and returns the caller identity.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (AuthInfo, error) {
	if token == "" {
		return AuthInfo{}, pkgerrors.UnauthorizedError("missing bearer token")
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.jwtIssuer != "" {
		options = append(options, jwt.WithIssuer(s.jwtIssuer))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AuthInfo{}, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return AuthInfo{}, pkgerrors.Wrap(err, pkgerrors.TokenInvalid)
	}
	if !parsed.Valid {
		return AuthInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return AuthInfo{}, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("token subject missing")
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		return AuthInfo{}, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("token subject malformed")
	}

	rawRole, _ := claims[roleClaim].(string)
	role, ok := repository.ParseRole(rawRole)
	if !ok {
		return AuthInfo{}, pkgerrors.New(pkgerrors.TokenInvalid).WithMessage("token role unknown")
	}

	return AuthInfo{UserID: userID, Role: role}, nil
}

// ResolveProfile maps an authenticated user to its role-specific profile.
func (s *IdentityService) ResolveProfile(ctx context.Context, userID int64, role repository.Role) (*repository.Profile, error) {
	if userID <= 0 {
		return nil, pkgerrors.ValidationError("user_id", "required")
	}

	profile, err := s.profiles.GetByUserAndRole(ctx, nil, userID, role)
	if err != nil {
		if errors.Is(err, pkgrepo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.ProfileNotFound).
				WithDetail("role", string(role))
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "resolve profile failed")
	}
	if profile.Status == repository.ProfileStatusSuspended {
		return nil, pkgerrors.New(pkgerrors.ProfileSuspended)
	}
	return profile, nil
}
