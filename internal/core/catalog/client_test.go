package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skincare-advisor/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientConfig(baseURL string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			BaseURL:     baseURL,
			AccessToken: "test-token",
			PageSize:    250,
			Timeout:     5 * time.Second,
		},
	}
}

func TestFetchPublishedProducts(t *testing.T) {
	var gotQuery, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products.json", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotToken = r.Header.Get("X-Store-Access-Token")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[
			{"id":101,"title":"Gentle Toner","price":"18.50",
			 "ingredients":"Aqua, Witch Hazel","category":"toner",
			 "images":[{"src":"https://cdn.example.com/a.jpg"},{"src":""}]},
			{"id":102,"title":"Night Cream","price":"62.00",
			 "_ingredients":"Aqua, Retinol","body_html":"<p>Rich cream</p>"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(newClientConfig(server.URL))

	products, err := client.FetchPublishedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "test-token", gotToken)
	assert.Contains(t, gotQuery, "published_status=published")
	assert.Contains(t, gotQuery, "limit=250")

	assert.Equal(t, "101", products[0].ID)
	assert.Equal(t, "Gentle Toner", products[0].Name)
	assert.Equal(t, 18.50, products[0].Price)
	assert.Equal(t, "Aqua, Witch Hazel", products[0].RawIngredients)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, products[0].Images)

	// 成分與描述的欄位別名回退
	assert.Equal(t, "Aqua, Retinol", products[1].RawIngredients)
	assert.Equal(t, "<p>Rich cream</p>", products[1].Description)
}

func TestFetchPublishedProductsBadPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":101,"title":"Broken","price":"N/A"}]}`))
	}))
	defer server.Close()

	client := NewClient(newClientConfig(server.URL))

	// 單一商品的壞價格不讓整批抓取失敗
	products, err := client.FetchPublishedProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 0.0, products[0].Price)
}

func TestFetchPublishedProductsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(newClientConfig(server.URL))

	_, err := client.FetchPublishedProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/categories.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"categories":[{"id":"1","name":"toner"},{"id":"2","name":"serum"}]}`))
	}))
	defer server.Close()

	client := NewClient(newClientConfig(server.URL))

	categories, err := client.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "toner", categories[0].Name)
}
