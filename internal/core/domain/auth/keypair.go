package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sideseat/sideseat-core/pkg/ulid"
)

// KeyPairScope represents a permission scope granted to a public/secret key pair.
type KeyPairScope string

const (
	ScopeGatewayRead   KeyPairScope = "gateway:read"
	ScopeGatewayWrite  KeyPairScope = "gateway:write"
	ScopeAnalyticsRead KeyPairScope = "analytics:read"
	ScopeConfigRead    KeyPairScope = "config:read"
	ScopeConfigWrite   KeyPairScope = "config:write"
	ScopeAdmin         KeyPairScope = "admin"
)

// KeyPair is a public/secret key pair used for SDK and gateway authentication,
// scoped to a single project. The secret key is only ever returned once, at
// creation time; persisted records hold only its bcrypt hash.
type KeyPair struct {
	ID              ulid.ULID  `json:"id" gorm:"primaryKey;type:char(26)"`
	UserID          ulid.ULID  `json:"user_id" gorm:"type:char(26);index;not null"`
	OrganizationID  ulid.ULID  `json:"organization_id" gorm:"type:char(26);index;not null"`
	ProjectID       ulid.ULID  `json:"project_id" gorm:"type:char(26);index;not null"`
	EnvironmentID   *ulid.ULID `json:"environment_id,omitempty" gorm:"type:char(26);index"`
	Name            string     `json:"name" gorm:"not null"`
	PublicKey       string     `json:"public_key" gorm:"uniqueIndex;not null"`
	SecretKeyHash   string     `json:"-" gorm:"not null"`
	SecretKeyPrefix string     `json:"secret_key_prefix" gorm:"not null;default:sk_"`
	Scopes          []string   `json:"scopes" gorm:"serializer:json"`
	RateLimitRPM    int        `json:"rate_limit_rpm"`
	IsActive        bool       `json:"is_active" gorm:"default:true"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-" gorm:"index"`
}

// TableName sets the database table name for the KeyPair model.
func (KeyPair) TableName() string {
	return "key_pairs"
}

// NewKeyPair creates a new active key pair. The secret key itself is generated
// and hashed by the caller; only its hash is stored here.
func NewKeyPair(userID, organizationID, projectID ulid.ULID, name, publicKey, secretKeyHash string, scopes []string, rateLimitRPM int, expiresAt *time.Time) *KeyPair {
	now := time.Now()
	return &KeyPair{
		ID:              ulid.New(),
		UserID:          userID,
		OrganizationID:  organizationID,
		ProjectID:       projectID,
		Name:            name,
		PublicKey:       publicKey,
		SecretKeyHash:   secretKeyHash,
		SecretKeyPrefix: "sk_",
		Scopes:          scopes,
		RateLimitRPM:    rateLimitRPM,
		IsActive:        true,
		ExpiresAt:       expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ValidatePublicKeyFormat checks that the public key follows pk_<projectULID>_<random> form.
func (k *KeyPair) ValidatePublicKeyFormat() error {
	if !strings.HasPrefix(k.PublicKey, "pk_") {
		return fmt.Errorf("public key must start with 'pk_', got: %s", k.PublicKey)
	}

	parts := strings.Split(k.PublicKey, "_")
	if len(parts) < 3 {
		return fmt.Errorf("public key must be in format pk_projectId_random, got: %s", k.PublicKey)
	}

	projectIDPart := parts[1]
	if len(projectIDPart) != 26 {
		return fmt.Errorf("project ID in public key must be 26 characters (ULID), got: %d characters", len(projectIDPart))
	}

	if _, err := ulid.Parse(projectIDPart); err != nil {
		return fmt.Errorf("invalid project ID format in public key: %w", err)
	}

	return nil
}

// ValidateSecretKeyPrefix checks that the secret key prefix is the expected sk_.
func (k *KeyPair) ValidateSecretKeyPrefix() error {
	if k.SecretKeyPrefix != "sk_" {
		return fmt.Errorf("secret key prefix must be 'sk_', got: %q", k.SecretKeyPrefix)
	}
	return nil
}

// IsValid reports whether the key pair is active and not expired.
func (k *KeyPair) IsValid() bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// HasScope reports whether the key pair grants the given scope. The admin
// scope implicitly grants every other scope.
func (k *KeyPair) HasScope(scope KeyPairScope) bool {
	for _, s := range k.Scopes {
		if KeyPairScope(s) == ScopeAdmin || KeyPairScope(s) == scope {
			return true
		}
	}
	return false
}

// CreateKeyPairRequest is the input for creating a new key pair.
type CreateKeyPairRequest struct {
	OrganizationID ulid.ULID  `json:"organization_id"`
	ProjectID      ulid.ULID  `json:"project_id"`
	EnvironmentID  *ulid.ULID `json:"environment_id,omitempty"`
	Name           string     `json:"name" validate:"required,min=1,max=100"`
	Scopes         []string   `json:"scopes" validate:"required,min=1"`
	RateLimitRPM   int        `json:"rate_limit_rpm" validate:"required,gt=0"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// UpdateKeyPairRequest allows partial updates to an existing key pair.
type UpdateKeyPairRequest struct {
	Name         *string    `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Scopes       []string   `json:"scopes,omitempty"`
	RateLimitRPM *int       `json:"rate_limit_rpm,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}

// CreateKeyPairResponse is returned once, at creation time, and is the only
// place the plaintext secret key is ever exposed.
type CreateKeyPairResponse struct {
	ID        ulid.ULID  `json:"id"`
	Name      string     `json:"name"`
	PublicKey string     `json:"public_key"`
	SecretKey string     `json:"secret_key"`
	ProjectID ulid.ULID  `json:"project_id"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// KeyPairFilters scopes key pair queries by owner.
type KeyPairFilters struct {
	UserID         *ulid.ULID `json:"user_id,omitempty"`
	OrganizationID *ulid.ULID `json:"organization_id,omitempty"`
	ProjectID      *ulid.ULID `json:"project_id,omitempty"`
}

// KeyPairRepository defines the interface for key pair data access.
type KeyPairRepository interface {
	Create(ctx context.Context, keyPair *KeyPair) error
	GetByID(ctx context.Context, id ulid.ULID) (*KeyPair, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*KeyPair, error)
	GetBySecretKeyHash(ctx context.Context, secretKeyHash string) (*KeyPair, error)
	Update(ctx context.Context, keyPair *KeyPair) error
	Delete(ctx context.Context, id ulid.ULID) error

	ValidateKeyPair(ctx context.Context, publicKey, secretKey string) (*KeyPair, error)

	GetByUserID(ctx context.Context, userID ulid.ULID) ([]*KeyPair, error)
	GetByOrganizationID(ctx context.Context, orgID ulid.ULID) ([]*KeyPair, error)
	GetByProjectID(ctx context.Context, projectID ulid.ULID) ([]*KeyPair, error)
	GetByEnvironmentID(ctx context.Context, envID ulid.ULID) ([]*KeyPair, error)

	DeactivateKeyPair(ctx context.Context, id ulid.ULID) error
	MarkAsUsed(ctx context.Context, id ulid.ULID) error
	CleanupExpiredKeyPairs(ctx context.Context) error

	ValidatePublicKeyFormat(ctx context.Context, publicKey string) error
	ExtractProjectIDFromPublicKey(ctx context.Context, publicKey string) (ulid.ULID, error)
	CheckKeyPairScopes(ctx context.Context, id ulid.ULID, requiredScopes []string) (bool, error)

	GetKeyPairCount(ctx context.Context, userID ulid.ULID) (int, error)
	GetActiveKeyPairCount(ctx context.Context, userID ulid.ULID) (int, error)
	GetKeyPairCountByProject(ctx context.Context, projectID ulid.ULID) (int, error)
}

// KeyPairService defines the key pair management and authentication service interface.
type KeyPairService interface {
	CreateKeyPair(ctx context.Context, userID ulid.ULID, req *CreateKeyPairRequest) (*CreateKeyPairResponse, error)
	GetKeyPair(ctx context.Context, keyID ulid.ULID) (*KeyPair, error)
	GetKeyPairs(ctx context.Context, filters *KeyPairFilters) ([]*KeyPair, error)
	UpdateKeyPair(ctx context.Context, keyID ulid.ULID, req *UpdateKeyPairRequest) error
	RevokeKeyPair(ctx context.Context, keyID ulid.ULID) error

	ValidateKeyPair(ctx context.Context, publicKey, secretKey string) (*KeyPair, error)
	AuthenticateWithKeyPair(ctx context.Context, publicKey, secretKey string) (*AuthContext, error)
	UpdateLastUsed(ctx context.Context, keyID ulid.ULID) error
	CheckRateLimit(ctx context.Context, keyID ulid.ULID) (bool, error)

	GetKeyPairContext(ctx context.Context, keyID ulid.ULID) (*AuthContext, error)
	CanKeyPairAccessResource(ctx context.Context, keyID ulid.ULID, resource string) (bool, error)
	CheckKeyPairScopes(ctx context.Context, keyID ulid.ULID, requiredScopes []string) (bool, error)

	GetKeyPairsByUser(ctx context.Context, userID ulid.ULID) ([]*KeyPair, error)
	GetKeyPairsByOrganization(ctx context.Context, orgID ulid.ULID) ([]*KeyPair, error)
	GetKeyPairsByProject(ctx context.Context, projectID ulid.ULID) ([]*KeyPair, error)
	GetKeyPairsByEnvironment(ctx context.Context, envID ulid.ULID) ([]*KeyPair, error)

	GenerateKeyPair(ctx context.Context, projectID ulid.ULID) (publicKey, secretKey string, err error)
	ValidatePublicKeyFormat(ctx context.Context, publicKey string) error
	ExtractProjectIDFromPublicKey(ctx context.Context, publicKey string) (ulid.ULID, error)
}

// UserRole is a direct platform-level role assignment for a user, distinct
// from organization-scoped membership roles tracked on OrganizationMember.
type UserRole struct {
	UserID    ulid.ULID `json:"user_id" gorm:"primaryKey;type:char(26)"`
	RoleID    ulid.ULID `json:"role_id" gorm:"primaryKey;type:char(26)"`
	Role      *Role     `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}

// UserRoleRepository defines the interface for direct user-to-role assignment data access.
type UserRoleRepository interface {
	Create(ctx context.Context, userRole *UserRole) error
	Delete(ctx context.Context, userID, roleID ulid.ULID) error
	GetByUser(ctx context.Context, userID ulid.ULID) ([]*UserRole, error)
	GetByRole(ctx context.Context, roleID ulid.ULID) ([]*UserRole, error)
	Exists(ctx context.Context, userID, roleID ulid.ULID) (bool, error)

	BulkAssign(ctx context.Context, userRoles []*UserRole) error
	BulkRevoke(ctx context.Context, userID ulid.ULID, roleIDs []ulid.ULID) error

	GetUserRoleCount(ctx context.Context, userID ulid.ULID) (int, error)
	GetRoleUserCount(ctx context.Context, roleID ulid.ULID) (int, error)
}
