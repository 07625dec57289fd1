package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Object is one data object for /v1/batch/objects.
type Object struct {
	Class      string         `json:"class"`
	Properties map[string]any `json:"properties"`
}

type batchItem struct {
	Result struct {
		Errors *struct {
			Error []struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"errors"`
	} `json:"result"`
}

// BatchObjects imports objects in one request. The returned slice is aligned with objects:
// a nil entry means the object was stored. The error is set only when the whole call failed.
func (c *Client) BatchObjects(ctx context.Context, objects []Object) ([]error, error) {
	if len(objects) == 0 {
		return nil, nil
	}
	body := map[string]any{"objects": objects}
	data, code, err := c.do(ctx, http.MethodPost, "/batch/objects", "batch", body)
	if err != nil {
		return nil, err
	}
	if err := c.expectOK("batch", data, code); err != nil {
		return nil, err
	}

	var items []batchItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}

	results := make([]error, len(objects))
	for i := range objects {
		if i >= len(items) {
			results[i] = errors.New("object missing from batch response")
			continue
		}
		if errs := items[i].Result.Errors; errs != nil && len(errs.Error) > 0 {
			msgs := make([]string, 0, len(errs.Error))
			for _, e := range errs.Error {
				msgs = append(msgs, e.Message)
			}
			results[i] = errors.New(strings.Join(msgs, "; "))
		}
	}
	return results, nil
}
