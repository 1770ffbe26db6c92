// Package workflow holds the host-side types a node consumes and produces:
// items with their JSON payload, binary attachments and input linkage.
package workflow

import (
	"io"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-snowflake/pkg/json"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
)

// Item is one unit of data flowing between workflow nodes
type Item struct {
	JSON       *models.Row            `json:"json"`
	Binary     map[string]*BinaryData `json:"binary,omitempty"`
	PairedItem *PairedItem            `json:"pairedItem,omitempty"`
}

// PairedItem links an output item to the input item it was derived from
type PairedItem struct {
	Item int `json:"item"`
}

// BinaryData describes a binary attachment. Data is set for attachments
// kept in memory; Location is set for attachments written to storage.
type BinaryData struct {
	ID            string `json:"id,omitempty"`
	FileName      string `json:"fileName"`
	FileExtension string `json:"fileExtension,omitempty"`
	MimeType      string `json:"mimeType"`
	FileSize      int64  `json:"fileSize"`
	Data          []byte `json:"data,omitempty"`
	Location      string `json:"location,omitempty"`
	// Compression names the algorithm applied to the stored content, if any
	Compression string `json:"compression,omitempty"`
}

// NewItem creates an item carrying row, paired to the input at index
func NewItem(row *models.Row, index int) Item {
	if row == nil {
		row = models.NewRow(0)
	}
	return Item{
		JSON:       row,
		PairedItem: &PairedItem{Item: index},
	}
}

// ReadItems decodes a JSON array of items. Elements may be item envelopes
// ({"json": {...}}) or bare objects, which become the item's JSON.
func ReadItems(r io.Reader) ([]Item, error) {
	var raw []map[string]interface{}
	if err := jsonpool.Decode(r, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "input must be a JSON array of objects")
	}

	items := make([]Item, 0, len(raw))
	for _, obj := range raw {
		if inner, ok := envelope(obj); ok {
			items = append(items, Item{JSON: models.RowFromMap(inner)})
			continue
		}
		items = append(items, Item{JSON: models.RowFromMap(obj)})
	}
	return items, nil
}

func envelope(obj map[string]interface{}) (map[string]interface{}, bool) {
	inner, ok := obj["json"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	for k := range obj {
		switch k {
		case "json", "binary", "pairedItem":
		default:
			return nil, false
		}
	}
	return inner, true
}

// WriteItems encodes items as an indented JSON array
func WriteItems(w io.Writer, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	return jsonpool.MarshalToWriter(w, items, "  ")
}
