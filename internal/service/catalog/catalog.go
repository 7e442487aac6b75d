// Package catalog is the product lookup collaborator over the storefront's
// product service API.
package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

type Service struct {
	baseURL  string
	login    string
	password string
	http     *http.Client
	log      *slog.Logger
}

func NewService(conf *config.Config, logger *slog.Logger) *Service {
	if conf.Catalog.BaseURL == "" {
		return nil
	}
	return &Service{
		baseURL:  conf.Catalog.BaseURL,
		login:    conf.Catalog.Login,
		password: conf.Catalog.Password,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      logger.With(sl.Module("catalog")),
	}
}

func (s *Service) getBase64Auth() string {
	return base64.StdEncoding.EncodeToString([]byte(s.login + ":" + s.password))
}

// GetProduct returns the catalog view of one product.
func (s *Service) GetProduct(ctx context.Context, id string) (entity.ProductInfo, error) {
	var product entity.ProductInfo
	if err := s.get(ctx, fmt.Sprintf("%s/products/%s", s.baseURL, id), &product); err != nil {
		return entity.ProductInfo{}, err
	}
	return product, nil
}

// GetRecommendations returns products often bought with the given one.
func (s *Service) GetRecommendations(ctx context.Context, productID string, limit int) ([]entity.ProductInfo, error) {
	var products []entity.ProductInfo
	url := fmt.Sprintf("%s/products/%s/related?limit=%d", s.baseURL, productID, limit)
	if err := s.get(ctx, url, &products); err != nil {
		return nil, err
	}
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *Service) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", s.getBase64Auth()))

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		s.log.With(
			slog.Int("status", resp.StatusCode),
			slog.String("url", url),
		).Error("invalid response code")
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}
	return nil
}
