package backend

import (
	"context"
	"net/url"
	"strconv"

	"era-inventory-panel/internal/models"
)

func listAs[T any](ctx context.Context, c *Client, entity string) ([]T, error) {
	out := []T{}
	if err := c.getJSON(ctx, entityPath(entity), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c *Client) Employees(ctx context.Context) ([]models.Employee, error) {
	return listAs[models.Employee](ctx, c, EntityEmployee)
}

func (c *Client) Employee(ctx context.Context, id int) (models.Employee, error) {
	var e models.Employee
	err := c.getJSON(ctx, entityPath(EntityEmployee)+"/"+strconv.Itoa(id), nil, &e)
	return e, err
}

func (c *Client) CreateEmployee(ctx context.Context, e models.Employee) error {
	return c.Create(ctx, EntityEmployee, e)
}

func (c *Client) UpdateEmployee(ctx context.Context, e models.Employee) error {
	return c.Update(ctx, EntityEmployee, strconv.Itoa(e.ID), e)
}

func (c *Client) Resources(ctx context.Context) ([]models.Resource, error) {
	return listAs[models.Resource](ctx, c, EntityResource)
}

func (c *Client) CreateResource(ctx context.Context, r models.Resource) error {
	return c.Create(ctx, EntityResource, r)
}

func (c *Client) DeleteResource(ctx context.Context, id int) error {
	return c.Delete(ctx, EntityResource, strconv.Itoa(id))
}

// Devices lists the monitored network devices.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	return listAs[models.Device](ctx, c, EntityDevice)
}

func (c *Client) AccessLevels(ctx context.Context) ([]models.AccessLevel, error) {
	return listAs[models.AccessLevel](ctx, c, EntityAccessLevel)
}

func (c *Client) ResourceCategories(ctx context.Context) ([]models.ResourceCategory, error) {
	return listAs[models.ResourceCategory](ctx, c, EntityResourceCategory)
}

// Associations returns every association recorded for an employee.
func (c *Client) Associations(ctx context.Context, employeeID int) ([]models.ResourceAssociation, error) {
	out := []models.ResourceAssociation{}
	q := url.Values{"employeeId": []string{strconv.Itoa(employeeID)}}
	if err := c.getJSON(ctx, entityPath(EntityAssociation)+"/search", q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.ResourceAssociation{}
	}
	return out, nil
}

// AllAssociations lists every association, used by the developer page.
func (c *Client) AllAssociations(ctx context.Context) ([]models.ResourceAssociation, error) {
	return listAs[models.ResourceAssociation](ctx, c, EntityAssociation)
}

func (c *Client) CreateAssociation(ctx context.Context, a models.ResourceAssociation) error {
	return c.Create(ctx, EntityAssociation, a)
}

func (c *Client) UpdateAssociation(ctx context.Context, a models.ResourceAssociation) error {
	return c.Update(ctx, EntityAssociation, strconv.Itoa(a.ID), a)
}
