package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/store"
)

var userColumns = []string{
	"address",
	"profile_name", "profile_email", "profile_bio", "profile_website",
	"profile_created_at", "profile_updated_at",
	"skills", "skills_created_at", "skills_updated_at",
	"created_at", "updated_at",
}

// UserRepository handles database operations for users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser scans a single row into a User struct.
func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user                               domain.User
		name, email, bio, website          *string
		profileCreatedAt, profileUpdatedAt *time.Time
		skills                             []string
		skillsCreatedAt, skillsUpdatedAt   *time.Time
	)
	err := row.Scan(
		&user.Address,
		&name, &email, &bio, &website,
		&profileCreatedAt, &profileUpdatedAt,
		&skills, &skillsCreatedAt, &skillsUpdatedAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if profileCreatedAt != nil {
		user.Profile = &domain.UserProfile{
			Name:      deref(name),
			Email:     deref(email),
			Bio:       deref(bio),
			Website:   deref(website),
			CreatedAt: *profileCreatedAt,
			UpdatedAt: derefTime(profileUpdatedAt),
		}
	}
	if skillsCreatedAt != nil {
		user.Skills = &domain.UserSkills{
			Skills:    skills,
			CreatedAt: *skillsCreatedAt,
			UpdatedAt: derefTime(skillsUpdatedAt),
		}
	}
	return &user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// GetUser retrieves a user by address.
func (r *UserRepository) GetUser(ctx context.Context, address string) (*domain.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"address": address}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetUser query for %s: %w", address, err)
	}

	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// userValues flattens a user into insert values matching userColumns.
func userValues(u *domain.User) []interface{} {
	var (
		name, email, bio, website          *string
		profileCreatedAt, profileUpdatedAt *time.Time
		skills                             []string
		skillsCreatedAt, skillsUpdatedAt   *time.Time
	)
	if p := u.Profile; p != nil {
		name, email, bio, website = &p.Name, &p.Email, &p.Bio, &p.Website
		profileCreatedAt, profileUpdatedAt = &p.CreatedAt, &p.UpdatedAt
	}
	if s := u.Skills; s != nil {
		skills = s.Skills
		if skills == nil {
			skills = []string{}
		}
		skillsCreatedAt, skillsUpdatedAt = &s.CreatedAt, &s.UpdatedAt
	}
	return []interface{}{
		u.Address,
		name, email, bio, website,
		profileCreatedAt, profileUpdatedAt,
		skills, skillsCreatedAt, skillsUpdatedAt,
		u.CreatedAt, u.UpdatedAt,
	}
}

// PutUser upserts a user.
func (r *UserRepository) PutUser(ctx context.Context, user *domain.User) error {
	query, args, err := psql.
		Insert("users").
		Columns(userColumns...).
		Values(userValues(user)...).
		Suffix(`ON CONFLICT (address) DO UPDATE SET
			profile_name = EXCLUDED.profile_name,
			profile_email = EXCLUDED.profile_email,
			profile_bio = EXCLUDED.profile_bio,
			profile_website = EXCLUDED.profile_website,
			profile_created_at = EXCLUDED.profile_created_at,
			profile_updated_at = EXCLUDED.profile_updated_at,
			skills = EXCLUDED.skills,
			skills_created_at = EXCLUDED.skills_created_at,
			skills_updated_at = EXCLUDED.skills_updated_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build PutUser query for %s: %w", user.Address, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("put user %s: %w", user.Address, err)
	}
	return nil
}

// EnsureUser inserts user if absent and returns the stored row.
func (r *UserRepository) EnsureUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query, args, err := psql.
		Insert("users").
		Columns(userColumns...).
		Values(userValues(user)...).
		Suffix("ON CONFLICT (address) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build EnsureUser query for %s: %w", user.Address, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", user.Address, err)
	}
	return r.GetUser(ctx, user.Address)
}
