package backend

import (
	"context"
	"net/http"
	"net/url"

	"era-inventory-panel/internal/models"
)

// List returns every record of a dynamic entity (Item, Vendor) in backend order.
func (c *Client) List(ctx context.Context, entity string) ([]models.Record, error) {
	data, err := c.do(ctx, http.MethodGet, entityPath(entity), nil, nil)
	if err != nil {
		return nil, err
	}
	return models.ParseRecords(data)
}

// Get returns a single record by id.
func (c *Client) Get(ctx context.Context, entity, id string) (models.Record, error) {
	data, err := c.do(ctx, http.MethodGet, entityPath(entity)+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.Record{}, err
	}
	var rec models.Record
	if err := rec.UnmarshalJSON(data); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// Search runs the backend keyword search for an entity.
func (c *Client) Search(ctx context.Context, entity, keyword string) ([]models.Record, error) {
	data, err := c.do(ctx, http.MethodGet, entityPath(entity)+"/search", url.Values{"keyword": []string{keyword}}, nil)
	if err != nil {
		return nil, err
	}
	return models.ParseRecords(data)
}
