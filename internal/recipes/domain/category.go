package domain

// Category is the enumerated recipe category key.
type Category string

const (
	CategoryBreadsSandwichesAndPizza Category = "breadsSandwichesAndPizza"
	CategoryEggsAndBreakfast         Category = "eggsAndBreakfast"
	CategoryDessertsAndBakedGoods    Category = "dessertsAndBakedGoods"
	CategoryFishAndSeafood           Category = "fishAndSeafood"
	CategoryVegetables               Category = "vegetables"
)

// UnknownCategoryLabel is rendered for keys outside the table.
const UnknownCategoryLabel = "Unknown Category"

// CategoryOption pairs a category key with its display label.
type CategoryOption struct {
	Key   Category `json:"key"`
	Label string   `json:"label"`
}

// categories is the single label table shared by card rendering and the
// form's option set. Order is the order options are presented in.
var categories = []CategoryOption{
	{Key: CategoryBreadsSandwichesAndPizza, Label: "Breads, Sandwiches and Pizza"},
	{Key: CategoryEggsAndBreakfast, Label: "Eggs & Breakfast"},
	{Key: CategoryDessertsAndBakedGoods, Label: "Desserts & Baked Goods"},
	{Key: CategoryFishAndSeafood, Label: "Fish & Seafood"},
	{Key: CategoryVegetables, Label: "Vegetables"},
}

var categoryLabels = func() map[Category]string {
	m := make(map[Category]string, len(categories))
	for _, c := range categories {
		m[c.Key] = c.Label
	}
	return m
}()

// Categories returns the category options in presentation order.
func Categories() []CategoryOption {
	return append([]CategoryOption(nil), categories...)
}

// Valid reports whether c is one of the enumerated keys.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// LookupCategoryLabel returns the display label for key, or
// UnknownCategoryLabel when the key is not in the table.
func LookupCategoryLabel(key Category) string {
	if label, ok := categoryLabels[key]; ok {
		return label
	}
	return UnknownCategoryLabel
}
