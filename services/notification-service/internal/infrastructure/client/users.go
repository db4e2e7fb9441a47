package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/confera/confera/internal/security"
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

type userResponse struct {
	Valid bool `json:"valid"`
	User  User `json:"user"`
}

type UsersClient struct {
	baseClient
}

func NewUsersClient(baseURL string, tokens *security.TokenSource, timeout time.Duration, lg zerolog.Logger) *UsersClient {
	return &UsersClient{baseClient: newBaseClient(baseURL, tokens, timeout, lg, "users_client")}
}

// GetUser resolves a user's contact details. The auth service reports soft
// deletes as valid=false; that is an ErrNotFound for our purposes.
func (c *UsersClient) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	var out userResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s", userID), &out); err != nil {
		return nil, err
	}
	if !out.Valid {
		return nil, ErrNotFound
	}
	return &out.User, nil
}
