package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		exposed   bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, exposed: true, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, exposed: true},
		{code: CodeForbidden, status: http.StatusForbidden, exposed: true},
		{code: CodeNotFound, status: http.StatusNotFound, exposed: true},
		{code: CodeConflict, status: http.StatusConflict, exposed: true},
		{code: CodeStateConflict, status: http.StatusConflict, retryable: true, exposed: true, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, exposed: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.ExposeMessage != tt.exposed {
			t.Fatalf("code %s expected exposed %v got %v", tt.code, tt.exposed, meta.ExposeMessage)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
	}
}

func TestUnknownCodeIsInternal(t *testing.T) {
	if got := MetadataFor("SOMETHING_UNKNOWN").HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", got)
	}
	if got := Status(stdErrors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("untyped errors should map to 500, got %d", got)
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation reason", err: New(CodeValidation, "price must be a number"), want: "price must be a number"},
		{name: "wrapped conflict", err: fmt.Errorf("add: %w", New(CodeConflict, "code already exists")), want: "code already exists"},
		{name: "internal hidden", err: Wrap(CodeInternal, stdErrors.New("dsn leaked"), "query failed"), want: "internal server error"},
		{name: "dependency hidden", err: New(CodeDependency, "redis down"), want: "dependency unavailable"},
		{name: "untyped", err: stdErrors.New("boom"), want: "internal server error"},
		{name: "empty message", err: New(CodeNotFound, ""), want: "resource not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPublicDetails(t *testing.T) {
	details := map[string]any{"field": "price"}
	if PublicDetails(New(CodeValidation, "bad").WithDetails(details)) == nil {
		t.Fatal("validation details should be exposed")
	}
	if PublicDetails(New(CodeUnauthorized, "nope").WithDetails(details)) != nil {
		t.Fatal("auth details must stay private")
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing title")
	if base.Code() != CodeValidation || base.Message() != "missing title" {
		t.Fatalf("unexpected error %v", base)
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"field": "title"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if Wrap(CodeNotFound, nil, "cart not found").Unwrap() != nil {
		t.Fatalf("Wrap(nil) should not carry a cause")
	}
}

func TestIsMatchesWrappedCode(t *testing.T) {
	outer := fmt.Errorf("loading cart: %w", New(CodeNotFound, "cart not found"))
	if !Is(outer, CodeNotFound) {
		t.Fatalf("expected wrapped not found to match")
	}
	if Is(outer, CodeConflict) {
		t.Fatalf("unexpected conflict match")
	}
	if Is(stdErrors.New("plain"), CodeNotFound) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestTraceOfChain(t *testing.T) {
	err := Wrap(CodeDependency, Newf(CodeInternal, "query %s", "products"), "list products")
	if err.Error() != "DEPENDENCY_ERROR: list products" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	trace := TraceOf(err)
	if trace.Code != CodeDependency {
		t.Fatalf("expected dependency code in trace, got %s", trace.Code)
	}
	if len(trace.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", trace.Chain)
	}
	if trace.DB != nil {
		t.Fatalf("no driver error expected, got %+v", trace.DB)
	}
	if _, ok := trace.Fields()["db_code"]; ok {
		t.Fatal("db fields should be omitted without a driver error")
	}
}

func TestTraceOfPostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_products_code", TableName: "products", Message: "duplicate key"}
	trace := TraceOf(Wrap(CodeConflict, pgErr, "insert product"))
	if trace.DB == nil || trace.DB.Driver != "pgx" || trace.DB.Constraint != "ux_products_code" {
		t.Fatalf("unexpected db trace %+v", trace.DB)
	}
	if trace.Fields()["db_code"] != "23505" {
		t.Fatalf("expected db_code field, got %v", trace.Fields())
	}
}
