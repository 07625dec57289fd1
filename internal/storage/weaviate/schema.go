package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Class mirrors the schema object accepted by /v1/schema.
type Class struct {
	Class             string         `json:"class"`
	Description       string         `json:"description,omitempty"`
	Vectorizer        string         `json:"vectorizer,omitempty"`
	VectorIndexConfig map[string]any `json:"vectorIndexConfig,omitempty"`
	ModuleConfig      map[string]any `json:"moduleConfig,omitempty"`
	Properties        []Property     `json:"properties,omitempty"`
}

type Property struct {
	Name         string         `json:"name"`
	DataType     []string       `json:"dataType"`
	Description  string         `json:"description,omitempty"`
	ModuleConfig map[string]any `json:"moduleConfig,omitempty"`
}

// Classes lists the classes currently defined in the schema.
func (c *Client) Classes(ctx context.Context) ([]Class, error) {
	data, code, err := c.do(ctx, http.MethodGet, "/schema", "schema", nil)
	if err != nil {
		return nil, err
	}
	if err := c.expectOK("schema", data, code); err != nil {
		return nil, err
	}
	var out struct {
		Classes []Class `json:"classes"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return out.Classes, nil
}

// HasClass reports whether name is present in the schema.
func (c *Client) HasClass(ctx context.Context, name string) (bool, error) {
	classes, err := c.Classes(ctx)
	if err != nil {
		return false, err
	}
	for _, cl := range classes {
		if cl.Class == name {
			return true, nil
		}
	}
	return false, nil
}

// DeleteClass drops a class together with all of its objects.
func (c *Client) DeleteClass(ctx context.Context, name string) error {
	data, code, err := c.do(ctx, http.MethodDelete, "/schema/"+url.PathEscape(name), "schema_delete", nil)
	if err != nil {
		return err
	}
	return c.expectOK("schema_delete", data, code)
}

func (c *Client) CreateClass(ctx context.Context, class Class) error {
	data, code, err := c.do(ctx, http.MethodPost, "/schema", "schema_create", class)
	if err != nil {
		return err
	}
	return c.expectOK("schema_create", data, code)
}
