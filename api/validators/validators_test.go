package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"x","role":"admin"}`))
	var body loginBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Message() != "invalid field: role" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeJSONBodyRunsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	var body loginBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["password"] != "is required" || details["email"] != "must be a valid email" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestDecodeBodyAcceptsForms(t *testing.T) {
	form := url.Values{"email": {"a@b.co"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var body loginBody
	if err := DecodeBody(req, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Email != "a@b.co" || body.Password != "pw" {
		t.Fatalf("unexpected body %+v", body)
	}

	form.Set("extra", "1")
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := DecodeBody(req, &body); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown form field to fail, got %v", err)
	}
}

func TestQueryReader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&available=true&sort=DESC&category=+home+", nil)
	q := QueryOf(req)

	if got := q.Int("limit", 10, 1, 100); got != 5 {
		t.Fatalf("limit = %d", got)
	}
	if got := q.Int("page", 1, 1, 100); got != 1 {
		t.Fatalf("absent page should default, got %d", got)
	}
	if avail := q.Bool("available"); avail == nil || !*avail {
		t.Fatalf("available = %v", avail)
	}
	if missing := q.Bool("missing"); missing != nil {
		t.Fatalf("missing = %v", missing)
	}
	if got := q.Enum("sort", "asc", "desc"); got != "desc" {
		t.Fatalf("sort = %q", got)
	}
	if got := q.String("category"); got != "home" {
		t.Fatalf("category = %q", got)
	}
	if err := q.Err(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestQueryReaderCollectsEveryProblem(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&page=x&available=maybe&sort=sideways", nil)
	q := QueryOf(req)
	q.Int("limit", 10, 1, 100)
	q.Int("page", 1, 1, 100)
	q.Bool("available")
	q.Enum("sort", "asc", "desc")

	err := q.Err()
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := pkgerrors.As(err).Message(); msg != "limit must be between 1 and 100" {
		t.Fatalf("first problem should lead the message, got %q", msg)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}
	for _, key := range []string{"limit", "page", "available", "sort"} {
		if details[key] == "" {
			t.Errorf("missing problem for %s in %v", key, details)
		}
	}
}

func TestParseMultipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Mug")
	for _, name := range []string{"a.png", "b.png"} {
		fw, err := mw.CreateFormFile("thumbnails", name)
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = fw.Write([]byte("data"))
	}
	_ = mw.Close()

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	req := newReq()
	if !IsMultipart(req) {
		t.Fatalf("expected multipart detection")
	}
	files, err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, "thumbnails", 5)
	if err != nil || len(files) != 2 {
		t.Fatalf("files = %d, %v", len(files), err)
	}
	if req.MultipartForm.Value["title"][0] != "Mug" {
		t.Fatalf("missing text field")
	}

	if _, err := ParseMultipart(httptest.NewRecorder(), newReq(), 1<<20, "thumbnails", 1); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected too many files, got %v", err)
	}
	if _, err := ParseMultipart(httptest.NewRecorder(), newReq(), 10, "thumbnails", 5); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestParseMultipartRejectsUnknownFileFields(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Mug")
	for _, field := range []string{"thumbnails", "avatar", "banner"} {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = fw.Write([]byte("data"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	_, err := ParseMultipart(httptest.NewRecorder(), req, 1<<20, "thumbnails", 5)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := pkgerrors.As(err).Message(); got != "invalid file fields: avatar, banner" {
		t.Fatalf("message = %q", got)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "  hello world ", max: 5, want: "hello"},
		{in: "hola\x00 mundo\tcruel", max: 0, want: "hola mundocruel"},
		{in: "línea\nsegunda", max: 0, want: "línea\nsegunda"},
		{in: "ñandú", max: 3, want: "ñan"},
		{in: "   ", max: 10, want: ""},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in, tt.max); got != tt.want {
			t.Fatalf("SanitizeText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
