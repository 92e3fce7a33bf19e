package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/app"
	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/internal/domain"
	"github.com/jafarshop/storefront/internal/export"
	"github.com/jafarshop/storefront/internal/service"
	"github.com/jafarshop/storefront/internal/shopify"
)

func main() {
	fromShopify := flag.Bool("shopify", false, "import products from the configured Shopify store")
	fromFile := flag.String("xlsx", "", "import products from an Excel workbook")
	seller := flag.String("seller", "", "assign imported products to this seller id")
	flag.Parse()

	if *fromShopify == (*fromFile != "") {
		fmt.Println("Usage: go run cmd/import-catalog/main.go (-shopify | -xlsx <file>) [-seller <uid>]")
		fmt.Println("Example: go run cmd/import-catalog/main.go -xlsx products.xlsx")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx := context.Background()

	var products []domain.Product
	if *fromShopify {
		if err := cfg.RequireShopify(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("🔍 Fetching products from %s\n\n", cfg.Shopify.ShopDomain)
		products, err = shopify.NewClient(cfg.Shopify, logger).FetchProducts(ctx, 50)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query Shopify: %v\n", err)
			os.Exit(1)
		}
	} else {
		products, err = readWorkbook(*fromFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read workbook: %v\n", err)
			os.Exit(1)
		}
	}

	store, closeStore, err := app.OpenStorage(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	catalog, err := service.NewCatalogStore(ctx, store, service.DefaultCatalog(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	created, updated, failed := 0, 0, 0
	for _, p := range products {
		if *seller != "" {
			p.SellerID = *seller
		}
		if p.ID != "" {
			if _, err := catalog.Product(p.ID); err == nil {
				if _, err := catalog.UpdateProduct(ctx, p); err != nil {
					logger.Warn("Failed to update product", zap.String("product_id", p.ID), zap.Error(err))
					failed++
					continue
				}
				updated++
				continue
			}
		}
		if _, err := catalog.AddProduct(ctx, p); err != nil {
			logger.Warn("Failed to add product", zap.String("name", p.Name), zap.Error(err))
			failed++
			continue
		}
		created++
	}

	fmt.Printf("✅ Import finished\n\n")
	fmt.Printf("Created: %d\n", created)
	fmt.Printf("Updated: %d\n", updated)
	fmt.Printf("Failed:  %d\n", failed)
	fmt.Printf("Catalog size: %d products in %d categories\n", len(catalog.Products()), len(catalog.Categories()))
}

func readWorkbook(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	products, skipped, err := export.ReadCatalog(f, info.Size())
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d rows without a name or price\n", skipped)
	}
	return products, nil
}
