package api

import (
	"context"

	"github.com/nhle/airwatch/internal/model"
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return model.LoginResponse{}, err
	}
	return resp, nil
}

// Register creates an account. It returns the backend's confirmation text.
func (c *Client) Register(ctx context.Context, reg model.Registration) (string, error) {
	var msg string
	if err := c.Post(ctx, "/auth/register", reg, &msg); err != nil {
		return "", err
	}
	return msg, nil
}
