package auth

import (
	"errors"
	"time"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Claims identify the staff member behind a token.
type Claims struct {
	UserID int64
	Role   model.Role
}

type Strategy interface {
	IssueToken(claims Claims) (string, error)
	ParseToken(token string) (Claims, error)
	Name() string
}

type Options struct {
	TTL    time.Duration
	Issuer string
}
