package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Field names accepted on create and update.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCode        = "code"
	FieldPrice       = "price"
	FieldStock       = "stock"
	FieldStatus      = "status"
	FieldCategory    = "category"
	FieldThumbnails  = "thumbnails"
)

var knownFields = map[string]struct{}{
	FieldTitle: {}, FieldDescription: {}, FieldCode: {}, FieldPrice: {},
	FieldStock: {}, FieldStatus: {}, FieldCategory: {}, FieldThumbnails: {},
}

var identityFields = map[string]struct{}{"id": {}, "_id": {}}

// Fields is the statically declared product payload. A nil pointer means the
// key was absent; on update only present keys are applied.
type Fields struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Code        *string     `json:"code"`
	Price       *FlexNumber `json:"price"`
	Stock       *FlexNumber `json:"stock"`
	Status      *bool       `json:"status"`
	Category    *string     `json:"category"`
	Thumbnails  *Thumbnails `json:"thumbnails"`
}

// IsEmpty reports whether no field was supplied.
func (f Fields) IsEmpty() bool {
	return f.Title == nil && f.Description == nil && f.Code == nil && f.Price == nil &&
		f.Stock == nil && f.Status == nil && f.Category == nil && f.Thumbnails == nil
}

// AppendThumbnails adds uploaded file URLs after any thumbnails sent as fields.
func (f *Fields) AppendThumbnails(urls ...string) {
	if len(urls) == 0 {
		return
	}
	if f.Thumbnails == nil {
		f.Thumbnails = &Thumbnails{}
	}
	*f.Thumbnails = append(*f.Thumbnails, urls...)
}

// DecodeFields parses a JSON object into Fields, rejecting identity keys and
// any key outside the schema.
func DecodeFields(body []byte) (Fields, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Fields{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body must be a JSON object")
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	if err := checkKeys(keys); err != nil {
		return Fields{}, err
	}

	var f Fields
	if err := json.Unmarshal(body, &f); err != nil {
		return Fields{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fieldTypeMessage(err))
	}
	return f, nil
}

// FieldsFromForm maps multipart or urlencoded form values onto Fields with the
// same allow-list as DecodeFields.
func FieldsFromForm(values url.Values) (Fields, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	if err := checkKeys(keys); err != nil {
		return Fields{}, err
	}

	var f Fields
	str := func(key string) *string {
		if vs, ok := values[key]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}
	f.Title = str(FieldTitle)
	f.Description = str(FieldDescription)
	f.Code = str(FieldCode)
	f.Category = str(FieldCategory)
	if v := str(FieldPrice); v != nil {
		f.Price = &FlexNumber{raw: *v}
	}
	if v := str(FieldStock); v != nil {
		f.Stock = &FlexNumber{raw: *v}
	}
	if v := str(FieldStatus); v != nil {
		b, err := strconv.ParseBool(strings.TrimSpace(*v))
		if err != nil {
			return Fields{}, pkgerrors.New(pkgerrors.CodeValidation, "status must be true or false")
		}
		f.Status = &b
	}
	if vs, ok := values[FieldThumbnails]; ok {
		t := Thumbnails{}
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				t = append(t, v)
			}
		}
		f.Thumbnails = &t
	}
	return f, nil
}

func checkKeys(keys []string) error {
	var identity, unknown []string
	for _, k := range keys {
		if _, ok := identityFields[k]; ok {
			identity = append(identity, k)
			continue
		}
		if _, ok := knownFields[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(identity) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id cannot be set or reassigned").
			WithDetails(map[string]any{"fields": identity})
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid fields: %s", strings.Join(unknown, ", ")).
			WithDetails(map[string]any{"fields": unknown})
	}
	return nil
}

func fieldTypeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s has an invalid type", typeErr.Field)
	}
	return "invalid product fields"
}

// FlexNumber accepts a JSON number or a numeric-looking string.
type FlexNumber struct {
	raw string
}

// NewFlexNumber wraps a literal value. Used by callers building Fields in code.
func NewFlexNumber(v string) *FlexNumber {
	return &FlexNumber{raw: v}
}

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		n.raw = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.raw = s
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		n.raw = string(b)
	default:
		return fmt.Errorf("expected number or numeric string, got %s", string(b))
	}
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.raw)
}

// String returns the raw value as received.
func (n FlexNumber) String() string {
	return n.raw
}

// Decimal parses the value. Blank input is reported as missing.
func (n FlexNumber) Decimal(field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(n.raw)
	if v == "" {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a number", field)
	}
	return d, nil
}

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)
)

// Int parses the value as a whole number within the int32 range of the
// integer columns.
func (n FlexNumber) Int(field string) (int, error) {
	d, err := n.Decimal(field)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a whole number", field)
	}
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is out of range", field)
	}
	return int(d.IntPart()), nil
}

// Thumbnails accepts either a single string or a list of strings.
type Thumbnails []string

func (t *Thumbnails) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = Thumbnails{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*t = Thumbnails{}
			return nil
		}
		*t = Thumbnails{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("thumbnails must be a string or a list of strings")
	}
	*t = Thumbnails(list)
	return nil
}
