package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillforge/internal/common/cache"
	"skillforge/internal/common/db"
	pkgrepo "skillforge/pkg/repository"
)

const (
	defaultProfileCacheTTL      = 30 * time.Minute
	defaultProfileCacheEmptyTTL = 5 * time.Minute
	profileCacheKeyPrefix       = "profile:user:"
)

// Role identifies the kind of actor a profile belongs to.
type Role string

const (
	RoleStudent   Role = "student"
	RoleArchitect Role = "architect"
	RoleCompany   Role = "company"
	RoleAdmin     Role = "admin"
)

// ParseRole converts a raw string into a known Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleStudent, RoleArchitect, RoleCompany, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// ProfileStatus is the account state of a profile.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// Profile maps an authenticated user to a role-specific identity.
// A single user may hold at most one profile per role.
type Profile struct {
	ProfileID   string
	UserID      int64
	Role        Role
	DisplayName string
	Status      ProfileStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileRepository defines profile persistence interfaces.
type ProfileRepository interface {
	Create(ctx context.Context, tx db.Transaction, profile *Profile) error
	GetByID(ctx context.Context, tx db.Transaction, profileID string) (*Profile, error)
	GetByUserAndRole(ctx context.Context, tx db.Transaction, userID int64, role Role) (*Profile, error)
}

// MySQLProfileRepository implements ProfileRepository with MySQL.
type MySQLProfileRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
	ttl        time.Duration
	emptyTTL   time.Duration
}

// NewProfileRepository creates a profile repository with defaults.
func NewProfileRepository(provider db.Provider, cacheClient cache.Cache) ProfileRepository {
	return &MySQLProfileRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        defaultProfileCacheTTL,
		emptyTTL:   defaultProfileCacheEmptyTTL,
	}
}

const profileColumns = "profile_id, user_id, role, display_name, status, created_at, updated_at"

// Create inserts a profile record.
func (r *MySQLProfileRepository) Create(ctx context.Context, tx db.Transaction, profile *Profile) error {
	if profile == nil {
		return errors.New("profile is nil")
	}
	if profile.ProfileID == "" {
		return errors.New("profileID is required")
	}
	if profile.UserID <= 0 {
		return errors.New("userID is required")
	}

	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles
		(profile_id, user_id, role, display_name, status)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = db.GetQuerier(database, tx).Exec(
		ctx,
		query,
		profile.ProfileID,
		profile.UserID,
		string(profile.Role),
		profile.DisplayName,
		string(profile.Status),
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return pkgrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID retrieves a profile by its id.
func (r *MySQLProfileRepository) GetByID(ctx context.Context, tx db.Transaction, profileID string) (*Profile, error) {
	if profileID == "" {
		return nil, errors.New("profileID is required")
	}
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + profileColumns + " FROM profiles WHERE profile_id = ? LIMIT 1"
	return scanProfile(db.GetQuerier(database, tx).QueryRow(ctx, query, profileID))
}

// GetByUserAndRole retrieves the profile held by a user for a specific role.
func (r *MySQLProfileRepository) GetByUserAndRole(ctx context.Context, tx db.Transaction, userID int64, role Role) (*Profile, error) {
	if userID <= 0 {
		return nil, errors.New("userID is required")
	}
	if r.cache != nil && tx == nil {
		profile, err := cache.GetWithCached[*Profile](
			ctx,
			r.cache,
			profileCacheKey(userID, role),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(profile *Profile) bool { return profile == nil },
			marshalProfile,
			unmarshalProfile,
			func(ctx context.Context) (*Profile, error) {
				profile, err := r.getByUserAndRoleFromDB(ctx, nil, userID, role)
				if err != nil {
					if errors.Is(err, pkgrepo.ErrNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return profile, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, pkgrepo.ErrNotFound
		}
		return profile, nil
	}
	return r.getByUserAndRoleFromDB(ctx, tx, userID, role)
}

func (r *MySQLProfileRepository) getByUserAndRoleFromDB(ctx context.Context, tx db.Transaction, userID int64, role Role) (*Profile, error) {
	database, err := db.CurrentDatabase(r.dbProvider)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + profileColumns + " FROM profiles WHERE user_id = ? AND role = ? LIMIT 1"
	return scanProfile(db.GetQuerier(database, tx).QueryRow(ctx, query, userID, string(role)))
}

func scanProfile(row db.Row) (*Profile, error) {
	profile := &Profile{}
	var role, status string
	if err := row.Scan(
		&profile.ProfileID,
		&profile.UserID,
		&role,
		&profile.DisplayName,
		&status,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, pkgrepo.ErrNotFound
		}
		return nil, err
	}
	profile.Role = Role(role)
	profile.Status = ProfileStatus(status)
	return profile, nil
}

func profileCacheKey(userID int64, role Role) string {
	return fmt.Sprintf("%s%d:%s", profileCacheKeyPrefix, userID, role)
}

func marshalProfile(profile *Profile) string {
	if profile == nil {
		return ""
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProfile(data string) (*Profile, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var profile Profile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
