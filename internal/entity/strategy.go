package entity

// Strategy is a conflict resolution policy. It is assigned a per-entity
// default when a conflict is detected and may be overridden at
// resolution time.
type Strategy string

const (
	ServerWins    Strategy = "SERVER_WINS"
	ClientWins    Strategy = "CLIENT_WINS"
	LastWriteWins Strategy = "LAST_WRITE_WINS"
	Manual        Strategy = "MANUAL"
	Merge         Strategy = "MERGE"
)

// ParseStrategy validates a wire-format strategy string.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case ServerWins, ClientWins, LastWriteWins, Manual, Merge:
		return Strategy(s), true
	}
	return "", false
}

// DefaultStrategy returns the resolution strategy assigned to a conflict
// at detection time. Reference data is server-authoritative, account and
// user records need a human decision, and transactional data resolves by
// recency. The switch is exhaustive over the known entity set; anything
// else falls back to MANUAL.
func DefaultStrategy(n Name) Strategy {
	switch n {
	case Account, User:
		return Manual
	case CodeTable, CodeTranslation, Category, Extra, Ingredient,
		Table, Product, Variant, ProductExtra, ProductIngredient:
		return ServerWins
	case Order, OrderItem, OrderItemExtra:
		return LastWriteWins
	default:
		return Manual
	}
}
