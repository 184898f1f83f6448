package auth

import "context"

// Store describes the directory persistence required by the auth subsystem.
type Store interface {
	FindUser(ctx context.Context, id int64) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListAgents(ctx context.Context) ([]User, error)
}
