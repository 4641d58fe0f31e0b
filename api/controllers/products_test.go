package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type stubProductService struct {
	lastFields product.Fields
	lastQuery  product.ListQuery
	lastID     uuid.UUID
	addErr     error
}

func (s *stubProductService) AddProduct(ctx context.Context, fields product.Fields) (*product.ProductDTO, error) {
	s.lastFields = fields
	if s.addErr != nil {
		return nil, s.addErr
	}
	dto := &product.ProductDTO{ID: uuid.New()}
	if fields.Title != nil {
		dto.Title = *fields.Title
	}
	if fields.Thumbnails != nil {
		dto.Thumbnails = *fields.Thumbnails
	}
	return dto, nil
}

func (s *stubProductService) GetProductByID(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	s.lastID = id
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProductService) UpdateProduct(ctx context.Context, id uuid.UUID, fields product.Fields) (*product.ProductDTO, error) {
	s.lastID = id
	s.lastFields = fields
	return &product.ProductDTO{ID: id}, nil
}

func (s *stubProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.lastID = id
	return nil
}

func (s *stubProductService) ListProducts(ctx context.Context, query product.ListQuery) (*product.ListResult, error) {
	s.lastQuery = query
	return &product.ListResult{Payload: []product.ProductDTO{}}, nil
}

type memoryStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
}

func (m *memoryStore) Save(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	url := "/files/uploads/" + objectName
	m.saved[url] = body
	return url, nil
}

func (m *memoryStore) Delete(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return nil
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) NotifyAsync(ctx context.Context) {
	n.calls++
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile(thumbnailsField, name)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestProductsListParsesQuery(t *testing.T) {
	svc := &stubProductService{}
	handler := ProductsList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "http://shop.test/api/products?limit=5&page=2&sort=desc&category=home&available=true", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	q := svc.lastQuery
	if q.Limit != 5 || q.Page != 2 || q.Sort != "desc" || q.Category != "home" {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.Available == nil || !*q.Available {
		t.Fatal("expected available=true")
	}
	if q.BaseURL != "http://shop.test/api/products" {
		t.Fatalf("unexpected base url %q", q.BaseURL)
	}
}

func TestProductsListRejectsBadLimit(t *testing.T) {
	handler := ProductsList(&stubProductService{}, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/products?limit=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProductsCreateMultipartStoresThumbnails(t *testing.T) {
	svc := &stubProductService{}
	store := &memoryStore{}
	notifier := &countingNotifier{}
	handler := ProductsCreate(svc, store, notifier, UploadOptions{MaxBytes: 1 << 20, MaxFiles: 3}, nil)

	body, contentType := multipartBody(t,
		map[string]string{"title": "Lamp", "price": "10", "stock": "2"},
		map[string][]byte{"Desk Lamp.png": pngHeader},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastFields.Thumbnails == nil || len(*svc.lastFields.Thumbnails) != 1 {
		t.Fatalf("expected one thumbnail, got %+v", svc.lastFields.Thumbnails)
	}
	url := (*svc.lastFields.Thumbnails)[0]
	if !strings.HasPrefix(url, "/files/uploads/") || !strings.HasSuffix(url, "desk-lamp.png") {
		t.Fatalf("unexpected thumbnail url %q", url)
	}
	if !bytes.Equal(store.saved[url], pngHeader) {
		t.Fatal("stored bytes differ from upload")
	}
	if notifier.calls != 1 {
		t.Fatalf("expected one notification, got %d", notifier.calls)
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["msg"] != "product added" {
		t.Fatalf("unexpected msg %v", payload["msg"])
	}
}

func TestProductsCreateRejectsNonImages(t *testing.T) {
	svc := &stubProductService{}
	store := &memoryStore{}
	handler := ProductsCreate(svc, store, nil, UploadOptions{MaxBytes: 1 << 20, MaxFiles: 3}, nil)

	body, contentType := multipartBody(t,
		map[string]string{"title": "Lamp"},
		map[string][]byte{"notes.txt": []byte("plain text, not an image")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(store.saved) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestProductsCreateDiscardsUploadsOnServiceError(t *testing.T) {
	svc := &stubProductService{addErr: pkgerrors.New(pkgerrors.CodeConflict, "code already exists")}
	store := &memoryStore{}
	handler := ProductsCreate(svc, store, nil, UploadOptions{MaxBytes: 1 << 20, MaxFiles: 3}, nil)

	body, contentType := multipartBody(t,
		map[string]string{"title": "Lamp"},
		map[string][]byte{"a.png": pngHeader},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected uploaded thumbnail to be discarded, got %v", store.deleted)
	}
}

func TestProductsCreateRejectsUnknownMultipartField(t *testing.T) {
	handler := ProductsCreate(&stubProductService{}, &memoryStore{}, nil, UploadOptions{MaxBytes: 1 << 20}, nil)

	body, contentType := multipartBody(t, map[string]string{"title": "Lamp", "colour": "red"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestProductsCreateRejectsUnknownMultipartFile(t *testing.T) {
	svc := &stubProductService{}
	store := &memoryStore{}
	handler := ProductsCreate(svc, store, nil, UploadOptions{MaxBytes: 1 << 20, MaxFiles: 5}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "Lamp")
	fw, err := mw.CreateFormFile("avatar", "a.png")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	_, _ = fw.Write(pngHeader)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(store.saved) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.saved)
	}
	if !strings.Contains(resp.Body.String(), "avatar") {
		t.Fatalf("expected the offending field in the response: %s", resp.Body.String())
	}
}

func TestProductsUpdateAndDelete(t *testing.T) {
	svc := &stubProductService{}
	notifier := &countingNotifier{}
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "/api/products/"+id.String(), strings.NewReader(`{"price":"9.99"}`))
	req.Header.Set("Content-Type", "application/json")
	req = withURLParam(req, "productId", id.String())
	resp := httptest.NewRecorder()
	ProductsUpdate(svc, notifier, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastID != id || svc.lastFields.Price == nil || svc.lastFields.Price.String() != "9.99" {
		t.Fatalf("unexpected update input id=%s fields=%+v", svc.lastID, svc.lastFields)
	}

	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/api/products/"+id.String(), nil), "productId", id.String())
	resp = httptest.NewRecorder()
	ProductsDelete(svc, notifier, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if notifier.calls != 2 {
		t.Fatalf("expected two notifications, got %d", notifier.calls)
	}
}

func TestProductsGetMapsErrors(t *testing.T) {
	svc := &stubProductService{}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/nope", nil), "productId", "nope")
	resp := httptest.NewRecorder()
	ProductsGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", resp.Code)
	}

	id := uuid.New()
	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/"+id.String(), nil), "productId", id.String())
	resp = httptest.NewRecorder()
	ProductsGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
