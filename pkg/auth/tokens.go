package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teamplane/teamplane/pkg/rbac"
)

const (
	// DefaultAccessTTL bounds snapshot staleness: a role edit is live for
	// every session within one access-credential lifetime of its refresh.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL is the re-login horizon.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenProvider issues and validates the HS256-signed access and refresh
// credentials. Access and refresh tokens are signed with independent
// secrets so one cannot stand in for the other.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenProvider creates a TokenProvider. Zero TTLs fall back to the
// defaults (15 minutes access, 7 days refresh).
func NewTokenProvider(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the access credential lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the refresh credential lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess signs a short-lived access credential embedding the identity
// and the freshly resolved permission snapshot.
func (p *TokenProvider) IssueAccess(user Identity, snapshot *rbac.Snapshot) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTTL)),
		},
		Email:          user.Email,
		Name:           user.Name,
		OrganizationID: user.OrganizationID,
		LastLogin:      user.LastLogin,
	}
	if snapshot != nil {
		claims.OrgPermissions = snapshot.OrgPermissions
		claims.WorkspacePermissions = snapshot.WorkspacePermissions
	}
	if claims.OrgPermissions == nil {
		claims.OrgPermissions = []string{}
	}
	if claims.WorkspacePermissions == nil {
		claims.WorkspacePermissions = []rbac.WorkspaceGrant{}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.accessSecret)
}

// IssueRefresh signs a long-lived refresh credential carrying identity only.
func (p *TokenProvider) IssueRefresh(user Identity) (string, error) {
	now := time.Now().UTC()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.refreshTTL)),
		},
		Email: user.Email,
		Name:  user.Name,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.refreshSecret)
}

// ParseAccess validates an access credential and returns its claims.
func (p *TokenProvider) ParseAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.accessSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ParseRefresh validates a refresh credential and returns its claims.
func (p *TokenProvider) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.refreshSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
