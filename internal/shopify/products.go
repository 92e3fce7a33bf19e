package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/domain"
)

const defaultPageSize = 50

type productsPage struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productNode struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Vendor         string    `json:"vendor"`
	ProductType    string    `json:"productType"`
	CreatedAt      time.Time `json:"createdAt"`
	TotalInventory int       `json:"totalInventory"`
	FeaturedImage  *struct {
		URL string `json:"url"`
	} `json:"featuredImage"`
	Images struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID             string  `json:"id"`
				SKU            string  `json:"sku"`
				Price          string  `json:"price"`
				CompareAtPrice *string `json:"compareAtPrice"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

// FetchProducts pages through the shop's products and maps them onto catalog
// products. Products without a priced variant are skipped.
func (c *Client) FetchProducts(ctx context.Context, pageSize int) ([]domain.Product, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var products []domain.Product
	after := ""
	for {
		variables := map[string]interface{}{"first": pageSize}
		if after != "" {
			variables["after"] = after
		}

		data, err := c.query(ctx, ProductsQuery, variables)
		if err != nil {
			return nil, err
		}
		var page productsPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("failed to parse products page: %w", err)
		}

		for _, edge := range page.Products.Edges {
			p, ok := toProduct(edge.Node)
			if !ok {
				c.logger.Debug("Skipping product without a priced variant", zap.String("gid", edge.Node.ID))
				continue
			}
			products = append(products, p)
		}
		c.logger.Info("Fetched products page", zap.Int("page_size", len(page.Products.Edges)), zap.Int("total", len(products)))

		if !page.Products.PageInfo.HasNextPage {
			return products, nil
		}
		after = page.Products.PageInfo.EndCursor
	}
}

func toProduct(n productNode) (domain.Product, bool) {
	if len(n.Variants.Edges) == 0 {
		return domain.Product{}, false
	}
	variant := n.Variants.Edges[0].Node
	price, err := decimal.NewFromString(variant.Price)
	if err != nil {
		return domain.Product{}, false
	}

	p := domain.Product{
		ID:          "shopify-" + strconv.FormatInt(ExtractIDFromGID(n.ID), 10),
		Name:        n.Title,
		Description: n.Description,
		Price:       price,
		Category:    n.ProductType,
		Brand:       n.Vendor,
		Inventory:   n.TotalInventory,
		InStock:     n.TotalInventory > 0,
		CreatedAt:   n.CreatedAt,
	}
	if variant.CompareAtPrice != nil {
		if old, err := decimal.NewFromString(*variant.CompareAtPrice); err == nil && old.GreaterThan(price) {
			p.OldPrice = &old
			p.OnSale = true
		}
	}
	if n.FeaturedImage != nil {
		p.Image = n.FeaturedImage.URL
	}
	for _, img := range n.Images.Edges {
		p.Images = append(p.Images, img.Node.URL)
	}
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	return p, true
}

// ExtractIDFromGID returns the numeric tail of a Shopify GID such as
// "gid://shopify/Product/123456", or 0 when there is none.
func ExtractIDFromGID(gid string) int64 {
	i := strings.LastIndex(gid, "/")
	id, err := strconv.ParseInt(gid[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
