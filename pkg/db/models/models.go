package models

// All lists every persisted model, in dependency order, for automigration.
func All() []any {
	return []any{&Product{}, &Cart{}, &User{}, &Message{}}
}
