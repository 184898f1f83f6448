package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Directory provides account management on top of the user store. Agent
// management requires an admin caller; profile self-service is open to any
// authenticated user.
type Directory struct {
	store Store
}

// NewDirectory constructs the directory service.
func NewDirectory(store Store) (*Directory, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	return &Directory{store: store}, nil
}

// NewAgent is the payload for creating an agent account.
type NewAgent struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// CreateAgent registers a new agent account. Admin only.
func (d *Directory) CreateAgent(ctx context.Context, caller *User, in NewAgent) (User, error) {
	if !caller.IsAdmin() {
		return User{}, ErrForbidden
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := d.store.FindUserByEmail(ctx, email); err == nil {
		return User{}, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := HashPassword(strings.TrimSpace(in.Password))
	if err != nil {
		return User{}, err
	}
	return d.store.CreateUser(ctx, User{
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         RoleAgent,
		PasswordHash: hash,
	})
}

// ListAgents returns all agent accounts. Admin only.
func (d *Directory) ListAgents(ctx context.Context, caller *User) ([]User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return d.store.ListAgents(ctx)
}

// UpdateAgent applies a partial update to an agent account. Admin only; the
// target must exist and hold the agent role.
func (d *Directory) UpdateAgent(ctx context.Context, caller *User, agentID int64, upd UserUpdate) (User, error) {
	if !caller.IsAdmin() {
		return User{}, ErrForbidden
	}
	agent, err := d.store.FindUser(ctx, agentID)
	if err != nil {
		return User{}, err
	}
	if agent.Role != RoleAgent {
		return User{}, fmt.Errorf("%w: user is not an agent", ErrInvalidInput)
	}
	upd, err = d.prepareUpdate(ctx, agent, upd)
	if err != nil {
		return User{}, err
	}
	return d.store.UpdateUser(ctx, agentID, upd)
}

// DeleteAgent removes an agent account. Admin only.
func (d *Directory) DeleteAgent(ctx context.Context, caller *User, agentID int64) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	agent, err := d.store.FindUser(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.Role != RoleAgent {
		return fmt.Errorf("%w: user is not an agent", ErrInvalidInput)
	}
	return d.store.DeleteUser(ctx, agentID)
}

// UpdateSelf applies a partial update to the caller's own profile.
func (d *Directory) UpdateSelf(ctx context.Context, caller *User, upd UserUpdate) (User, error) {
	if caller == nil {
		return User{}, ErrForbidden
	}
	upd, err := d.prepareUpdate(ctx, *caller, upd)
	if err != nil {
		return User{}, err
	}
	return d.store.UpdateUser(ctx, caller.ID, upd)
}

// prepareUpdate validates the partial update against the current record:
// email changes are checked for uniqueness and passwords are swapped for
// their hash before the update reaches the store.
func (d *Directory) prepareUpdate(ctx context.Context, current User, upd UserUpdate) (UserUpdate, error) {
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return UserUpdate{}, err
		}
		if email != current.Email {
			if _, err := d.store.FindUserByEmail(ctx, email); err == nil {
				return UserUpdate{}, fmt.Errorf("%w: email already registered", ErrConflict)
			} else if !errors.Is(err, ErrNotFound) {
				return UserUpdate{}, err
			}
		}
		upd.Email = &email
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return UserUpdate{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}
	if upd.Password != nil {
		pw := strings.TrimSpace(*upd.Password)
		if pw == "" {
			return UserUpdate{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(pw)
		if err != nil {
			return UserUpdate{}, err
		}
		upd.Password = &hash
	}
	return upd, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
