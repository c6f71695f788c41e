package entity

import "sort"

// Name is the logical entity type of a synchronized document.
// The set is closed: the registry below is the single source of truth
// for which entities participate in sync and in what order.
type Name string

const (
	Account           Name = "account"
	User              Name = "user"
	CodeTable         Name = "code_table"
	CodeTranslation   Name = "code_translation"
	Category          Name = "category"
	Extra             Name = "extra"
	Ingredient        Name = "ingredient"
	Table             Name = "table"
	Product           Name = "product"
	Variant           Name = "variant"
	ProductExtra      Name = "product_extra"
	ProductIngredient Name = "product_ingredient"
	Order             Name = "order"
	OrderItem         Name = "order_item"
	OrderItemExtra    Name = "order_item_extra"
)

// order lists all known entities in dependency order: reference/lookup
// data first, then composition data, then transactional records and
// their line items. A push batch is applied in this order so that a
// line item never lands before the order it belongs to.
var order = []Name{
	Account,
	User,
	CodeTable,
	CodeTranslation,
	Category,
	Extra,
	Ingredient,
	Table,
	Product,
	Variant,
	ProductExtra,
	ProductIngredient,
	Order,
	OrderItem,
	OrderItemExtra,
}

var priority = func() map[Name]int {
	m := make(map[Name]int, len(order))
	for i, n := range order {
		m[n] = i
	}
	return m
}()

// All returns the known entity types in dependency order.
// The returned slice is a copy and safe to mutate.
func All() []Name {
	out := make([]Name, len(order))
	copy(out, order)
	return out
}

// Known reports whether n is a recognized entity type.
func Known(n Name) bool {
	_, ok := priority[n]
	return ok
}

// Rank returns n's position in the dependency order. Unknown entities
// rank after every known one so they sort last rather than failing here;
// deciding whether to reject them is the caller's concern.
func Rank(n Name) int {
	if p, ok := priority[n]; ok {
		return p
	}
	return len(order)
}

// SortByDependencyOrder stable-sorts changes by their entity's position
// in the dependency order.
func SortByDependencyOrder[T any](items []T, entityOf func(T) Name) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(entityOf(out[i])) < Rank(entityOf(out[j]))
	})
	return out
}
