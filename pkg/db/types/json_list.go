package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONList stores an ordered slice as a JSON array column. It scans from both
// the text and bytes representations drivers return, and never yields nil.
type JSONList[T any] []T

func (l *JSONList[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("JSONList: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*l = JSONList[T]{}
		return nil
	}

	out := JSONList[T]{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("JSONList: decode: %w", err)
	}
	if out == nil {
		out = JSONList[T]{}
	}
	*l = out
	return nil
}

func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, fmt.Errorf("JSONList: encode: %w", err)
	}
	return string(b), nil
}

func (JSONList[T]) GormDataType() string {
	return "json"
}

// GormDBDataType matches the goose migrations: jsonb on Postgres, text on
// SQLite.
func (JSONList[T]) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// Clone returns an independent copy of the list.
func (l JSONList[T]) Clone() JSONList[T] {
	out := make(JSONList[T], len(l))
	copy(out, l)
	return out
}
