package api

import (
	"context"
	"fmt"

	"github.com/nhle/airwatch/internal/model"
)

// Employees lists every user account. Admin only.
func (c *Client) Employees(ctx context.Context) ([]model.Employee, error) {
	var list []model.Employee
	if err := c.Get(ctx, "/admin/users", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Employee returns one user account. Admin only.
func (c *Client) Employee(ctx context.Context, id int64) (model.Employee, error) {
	var e model.Employee
	if err := c.Get(ctx, fmt.Sprintf("/admin/users/%d", id), nil, &e); err != nil {
		return model.Employee{}, err
	}
	return e, nil
}

// CreateEmployee creates a user account. Admin only.
func (c *Client) CreateEmployee(ctx context.Context, in model.EmployeeInput) (model.Employee, error) {
	var e model.Employee
	if err := c.Post(ctx, "/admin/users", in, &e); err != nil {
		return model.Employee{}, err
	}
	return e, nil
}

// UpdateEmployee updates a user account. Empty fields are left unchanged.
func (c *Client) UpdateEmployee(ctx context.Context, id int64, in model.EmployeeInput) (string, error) {
	var msg string
	err := c.Put(ctx, fmt.Sprintf("/admin/users/%d", id), in, &msg)
	return msg, err
}

// DeleteEmployee removes a user account.
func (c *Client) DeleteEmployee(ctx context.Context, id int64) (string, error) {
	var msg string
	err := c.Delete(ctx, fmt.Sprintf("/admin/users/%d", id), &msg)
	return msg, err
}
