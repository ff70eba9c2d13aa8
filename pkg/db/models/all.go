package models

// All lists the persisted models, in dependency order, for schema bootstrap
// on drivers the SQL migrations do not target.
func All() []any {
	return []any{
		&OrderRecord{},
		&MirrorWrite{},
		&Invoice{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&InventoryItem{},
	}
}
