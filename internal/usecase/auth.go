package usecase

import (
	"context"
	"errors"
	"strings"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	pkgAuth "github.com/polkiloo/orderboard/internal/pkg/auth"
)

// AuthUseCase manages staff accounts and their session tokens.
type AuthUseCase struct {
	users  repository.UserRepository
	hasher pkgAuth.PasswordHasher
	tokens pkgAuth.Strategy
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(users repository.UserRepository, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy) *AuthUseCase {
	return &AuthUseCase{users: users, hasher: hasher, tokens: strategy}
}

// Register opens a self-service account and a session for it. The first
// account of a restaurant becomes the owner, every later one is staff.
func (u *AuthUseCase) Register(ctx context.Context, login, password string) (*model.User, string, error) {
	count, err := u.users.Count(ctx)
	if err != nil {
		return nil, "", err
	}
	role := model.RoleStaff
	if count == 0 {
		role = model.RoleOwner
	}

	usr, err := u.createUser(ctx, login, password, role)
	if err != nil {
		return nil, "", err
	}
	return u.session(usr)
}

// AddStaff creates an account on behalf of the signed-in actor. The actor's
// role is read from the store, not from the token. Owners may add managers
// and staff, managers may add staff only.
func (u *AuthUseCase) AddStaff(ctx context.Context, actorID int64, login, password string, role model.Role) (*model.User, error) {
	switch role {
	case model.RoleManager, model.RoleStaff:
	default:
		return nil, domainErrors.ErrInvalidRole
	}

	actor, err := u.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrForbidden
		}
		return nil, err
	}
	if !canGrant(actor.Role, role) {
		return nil, domainErrors.ErrForbidden
	}
	return u.createUser(ctx, login, password, role)
}

func canGrant(actor, role model.Role) bool {
	switch actor {
	case model.RoleOwner:
		return true
	case model.RoleManager:
		return role == model.RoleStaff
	default:
		return false
	}
}

// Authenticate validates credentials and opens a session.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (*model.User, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, "", domainErrors.ErrInvalidCredentials
	}

	usr, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		if errors.Is(err, pkgAuth.ErrPasswordMismatch) {
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}
	return u.session(usr)
}

// ParseToken extracts the caller identity from provided token.
func (u *AuthUseCase) ParseToken(token string) (pkgAuth.Claims, error) {
	if token == "" {
		return pkgAuth.Claims{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

func (u *AuthUseCase) createUser(ctx context.Context, login, password string, role model.Role) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domainErrors.ErrInvalidCredentials
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return u.users.Create(ctx, login, hash, role)
}

func (u *AuthUseCase) session(usr *model.User) (*model.User, string, error) {
	token, err := u.tokens.IssueToken(pkgAuth.Claims{UserID: usr.ID, Role: usr.Role})
	if err != nil {
		return nil, "", err
	}
	return usr, token, nil
}
