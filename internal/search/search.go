// Package search maintains an optional Elasticsearch index over products.
// The catalog listing does not depend on it; it only backs /api/search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/dmarkov/electrostore/internal/models"
)

type Client struct {
	ES    *elasticsearch.Client
	Index string
}

func NewClient(url, user, password, index string) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return &Client{ES: client, Index: index}, nil
}

// Doc is the indexed product projection.
type Doc struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Model       string   `json:"model"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
}

// IndexProduct upserts one product document. A nil Client is a no-op.
func (c *Client) IndexProduct(ctx context.Context, p *models.Product) error {
	if c == nil {
		return nil
	}

	doc := Doc{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Model:       p.Model,
		Description: p.Description,
		Price:       p.Price,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}

	res, err := c.ES.Index(
		c.Index,
		bytes.NewReader(data),
		c.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		c.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product: %s", res.Status())
	}
	return nil
}

// DeleteProduct removes one product document. A nil Client is a no-op.
func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	if c == nil {
		return nil
	}

	res, err := c.ES.Delete(
		c.Index,
		strconv.FormatUint(uint64(id), 10),
		c.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete product doc: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete product doc: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy multi_match over name, model and description.
func (c *Client) Search(ctx context.Context, query string, from, size int) (int64, []Doc, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "model", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Doc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]Doc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
