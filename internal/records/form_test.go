package records

import (
	"context"
	"errors"
	"testing"

	"era-inventory-panel/internal/backend"
	"era-inventory-panel/internal/models"
	"era-inventory-panel/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns(t *testing.T) {
	assert.Nil(t, Columns(nil))
	recs := []models.Record{
		models.NewRecord("id", 1, "name", "a", "purchaseDate", "2024-01-02T00:00:00"),
		models.NewRecord("id", 2, "other", "b"),
	}
	assert.Equal(t, []string{"id", "name", "purchaseDate"}, Columns(recs))
}

func TestFields(t *testing.T) {
	cols := []string{"Id", "name", "purchaseDate"}
	cur := models.NewRecord("Id", 4, "name", "Desk", "purchaseDate", "2024-03-05T10:00:00")

	create := Fields(cols, ModeCreate, models.Record{}, []string{"name"})
	require.Len(t, create, 2)
	assert.Equal(t, "name", create[0].Name)
	assert.True(t, create[0].Required)
	assert.Equal(t, "", create[0].Value)
	assert.Equal(t, "date", create[1].Type)
	assert.Equal(t, "Purchase Date", create[1].Label)

	update := Fields(cols, ModeUpdate, cur, nil)
	require.Len(t, update, 3)
	assert.Equal(t, "ID", update[0].Label)
	assert.Equal(t, "4", update[0].Value)
	assert.Equal(t, "2024-03-05", update[2].Value)
}

func TestLabel(t *testing.T) {
	tests := map[string]string{
		"name":         "Name",
		"serialNumber": "Serial Number",
		"cost_center":  "Cost Center",
		"id":           "ID",
	}
	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	fields := []Field{
		{Name: "name", Label: "Name", Required: true},
		{Name: "room", Label: "Room"},
	}
	assert.NoError(t, Validate(fields, map[string]string{"name": "Desk"}))

	err := Validate(fields, map[string]string{"name": "  ", "room": "A"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Name"}, ve.Fields)
}

func TestBuildKeepsTypes(t *testing.T) {
	cur := models.NewRecord("id", float64(3), "qty", float64(2), "active", true, "note", "x", "buyDate", nil)
	fields := Fields(cur.Keys(), ModeUpdate, cur, nil)
	rec := Build(fields, map[string]string{
		"id": "3", "qty": "5", "active": "false", "note": "", "buyDate": "2024-06-01",
	}, cur)

	assert.Equal(t, cur.Keys(), rec.Keys())
	v, _ := rec.Get("qty")
	assert.Equal(t, float64(5), v)
	v, _ = rec.Get("active")
	assert.Equal(t, false, v)
	v, _ = rec.Get("note")
	assert.Nil(t, v)
	assert.Equal(t, "2024-06-01T00:00:00Z", rec.Text("buyDate"))
}

func TestSubmitAndDelete(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Seed(backend.EntityItem, models.NewRecord("id", 1, "name", "Desk"))
	client, err := backend.New(backend.Options{BaseURL: fb.URL})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, Submit(ctx, client, backend.EntityItem, ModeCreate, "", models.NewRecord("name", "Chair")))
	require.NoError(t, Submit(ctx, client, backend.EntityItem, ModeUpdate, "1", models.NewRecord("id", 1, "name", "Standing desk")))
	assert.ErrorIs(t, Submit(ctx, client, backend.EntityItem, ModeUpdate, "", models.Record{}), ErrNoSelection)

	rows := fb.Rows(backend.EntityItem)
	require.Len(t, rows, 2)
	assert.Equal(t, "Standing desk", rows[0].Text("name"))
	assert.Equal(t, "Chair", rows[1].Text("name"))

	require.NoError(t, Delete(ctx, client, backend.EntityItem, "2"))
	assert.Len(t, fb.Rows(backend.EntityItem), 1)
	assert.ErrorIs(t, Delete(ctx, client, backend.EntityItem, ""), ErrNoSelection)

	err = Delete(ctx, client, backend.EntityItem, "99")
	assert.True(t, backend.IsNotFound(err))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("update")
	require.NoError(t, err)
	assert.Equal(t, ModeUpdate, m)
	_, err = ParseMode("patch")
	assert.Error(t, err)
}
