package model

import "time"

// CategoryType indicates whether a category is for income, expense, or transfers.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeTransfer represents movements between a household's own accounts.
	CategoryTypeTransfer CategoryType = "transfer"
)

// Category is a household spending or income category.
type Category struct {
	CreatedAt time.Time    `json:"createdAt"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	ID        int64        `json:"id"`
	IsActive  bool         `json:"isActive"`
}

// CategoryIndex resolves categories by id and by case-insensitive name.
type CategoryIndex struct {
	byID   map[int64]Category
	byName map[string]Category
}

// NewCategoryIndex builds an index over the given categories.
func NewCategoryIndex(categories []Category) *CategoryIndex {
	idx := &CategoryIndex{
		byID:   make(map[int64]Category, len(categories)),
		byName: make(map[string]Category, len(categories)),
	}
	for _, c := range categories {
		idx.byID[c.ID] = c
		idx.byName[foldName(c.Name)] = c
	}
	return idx
}

// ByID returns the category with the given id.
func (i *CategoryIndex) ByID(id int64) (Category, bool) {
	if i == nil {
		return Category{}, false
	}
	c, ok := i.byID[id]
	return c, ok
}

// ByName returns the category with the given name, ignoring case and surrounding spaces.
func (i *CategoryIndex) ByName(name string) (Category, bool) {
	if i == nil {
		return Category{}, false
	}
	c, ok := i.byName[foldName(name)]
	return c, ok
}
