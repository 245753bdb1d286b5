package core

// DefaultCategories is the fixed set seeded into an empty category store, in
// insertion order. The first entry becomes the fallback for orphaned transactions.
var DefaultCategories = []Category{
	{Name: "Food", Color: 0xF44336, Icon: "restaurant", Predefined: true},
	{Name: "Transport", Color: 0x2196F3, Icon: "directions_car", Predefined: true},
	{Name: "Shopping", Color: 0x9C27B0, Icon: "shopping_bag", Predefined: true},
	{Name: "Entertainment", Color: 0xFF9800, Icon: "movie", Predefined: true},
	{Name: "Bills", Color: 0x795548, Icon: "receipt", Predefined: true},
	{Name: "Health", Color: 0xE91E63, Icon: "local_hospital", Predefined: true},
	{Name: "Education", Color: 0x3F51B5, Icon: "school", Predefined: true},
	{Name: "Groceries", Color: 0x4CAF50, Icon: "local_grocery_store", Predefined: true},
	{Name: "Salary", Color: 0x009688, Icon: "payments", Predefined: true},
	{Name: "Other", Color: 0x9E9E9E, Icon: "category", Predefined: true},
}

// NewDefaultCategories returns a copy of DefaultCategories safe to mutate.
func NewDefaultCategories() []Category {
	out := make([]Category, len(DefaultCategories))
	copy(out, DefaultCategories)
	return out
}
