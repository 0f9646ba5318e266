package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
)

// Food is one knowledge-base entry with macros for a standard serving.
type Food struct {
	Name     string   `json:"name"`
	Qty      float64  `json:"qty"`
	Unit     string   `json:"unit"`
	Kcal     int      `json:"kcal"`
	ProteinG float64  `json:"protein_g"`
	CarbsG   float64  `json:"carbs_g"`
	FatG     float64  `json:"fat_g"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// FoodTable is the static lookup behind the fallback matcher. It is loaded
// once at startup and never mutated afterwards.
type FoodTable struct {
	foods []Food
}

// FoodState loads the serialized food table from wherever it lives (file, S3,
// test fixture).
type FoodState interface {
	Load(ctx context.Context) ([]byte, error)
}

// NewFoodTable wraps a fixed list of foods.
func NewFoodTable(foods []Food) *FoodTable {
	copied := make([]Food, len(foods))
	copy(copied, foods)
	return &FoodTable{foods: copied}
}

// LoadFoodTable reads and decodes the table from a FoodState.
func LoadFoodTable(ctx context.Context, state FoodState) (*FoodTable, error) {
	b, err := state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("read food table: %w", err)
	}
	var wrapper struct {
		Foods []Food `json:"foods"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil, fmt.Errorf("decode food table: %w", err)
	}
	if len(wrapper.Foods) == 0 {
		return nil, fmt.Errorf("food table is empty")
	}
	return NewFoodTable(wrapper.Foods), nil
}

// Foods returns the entries in declaration order.
func (t *FoodTable) Foods() []Food {
	return t.foods
}

// Len reports how many foods the table holds.
func (t *FoodTable) Len() int {
	return len(t.foods)
}

// DefaultFoodTable is the compiled-in table of common foods with
// per-standard-serving macros, used when no external table is configured.
func DefaultFoodTable() *FoodTable {
	return NewFoodTable([]Food{
		{Name: "pizza", Qty: 107, Unit: "g", Kcal: 266, ProteinG: 11, CarbsG: 33, FatG: 10, Synonyms: []string{"pizza slice"}},
		{Name: "oatmeal", Qty: 234, Unit: "g", Kcal: 154, ProteinG: 6, CarbsG: 27, FatG: 3, Synonyms: []string{"porridge", "oats"}},
		{Name: "banana", Qty: 118, Unit: "g", Kcal: 105, ProteinG: 1.3, CarbsG: 27, FatG: 0.4},
		{Name: "apple", Qty: 182, Unit: "g", Kcal: 95, ProteinG: 0.5, CarbsG: 25, FatG: 0.3},
		{Name: "egg", Qty: 50, Unit: "g", Kcal: 78, ProteinG: 6.3, CarbsG: 0.6, FatG: 5.3},
		{Name: "chicken breast", Qty: 150, Unit: "g", Kcal: 248, ProteinG: 46.5, CarbsG: 0, FatG: 5.4, Synonyms: []string{"grilled chicken"}},
		{Name: "brown rice", Qty: 158, Unit: "g", Kcal: 175, ProteinG: 3.7, CarbsG: 36.5, FatG: 1.4},
		{Name: "white rice", Qty: 158, Unit: "g", Kcal: 205, ProteinG: 4.3, CarbsG: 44.5, FatG: 0.4, Synonyms: []string{"rice"}},
		{Name: "bread", Qty: 28, Unit: "g", Kcal: 75, ProteinG: 2.5, CarbsG: 14, FatG: 1, Synonyms: []string{"toast", "slice of bread"}},
		{Name: "peanut butter", Qty: 16, Unit: "g", Kcal: 94, ProteinG: 4, CarbsG: 3.5, FatG: 8},
		{Name: "greek yogurt", Qty: 170, Unit: "g", Kcal: 100, ProteinG: 17, CarbsG: 6, FatG: 0.7, Synonyms: []string{"yogurt", "yoghurt"}},
		{Name: "salad", Qty: 150, Unit: "g", Kcal: 33, ProteinG: 1.8, CarbsG: 6.5, FatG: 0.4, Synonyms: []string{"green salad", "mixed greens"}},
		{Name: "pasta", Qty: 140, Unit: "g", Kcal: 221, ProteinG: 8.1, CarbsG: 43, FatG: 1.3, Synonyms: []string{"spaghetti", "noodles"}},
		{Name: "burger", Qty: 226, Unit: "g", Kcal: 540, ProteinG: 25, CarbsG: 40, FatG: 29, Synonyms: []string{"hamburger", "cheeseburger"}},
		{Name: "fries", Qty: 117, Unit: "g", Kcal: 365, ProteinG: 4, CarbsG: 48, FatG: 17, Synonyms: []string{"chips", "french fries"}},
		{Name: "steak", Qty: 170, Unit: "g", Kcal: 456, ProteinG: 42, CarbsG: 0, FatG: 31},
		{Name: "salmon", Qty: 154, Unit: "g", Kcal: 280, ProteinG: 39, CarbsG: 0, FatG: 12.5},
		{Name: "broccoli", Qty: 91, Unit: "g", Kcal: 31, ProteinG: 2.6, CarbsG: 6, FatG: 0.3},
		{Name: "avocado", Qty: 100, Unit: "g", Kcal: 160, ProteinG: 2, CarbsG: 8.5, FatG: 14.7},
		{Name: "milk", Qty: 244, Unit: "ml", Kcal: 122, ProteinG: 8.1, CarbsG: 11.7, FatG: 4.8},
		{Name: "coffee", Qty: 240, Unit: "ml", Kcal: 2, ProteinG: 0.3, CarbsG: 0, FatG: 0},
		{Name: "protein shake", Qty: 300, Unit: "ml", Kcal: 160, ProteinG: 25, CarbsG: 8, FatG: 3, Synonyms: []string{"protein smoothie"}},
		{Name: "sandwich", Qty: 150, Unit: "g", Kcal: 300, ProteinG: 15, CarbsG: 35, FatG: 11},
		{Name: "soup", Qty: 245, Unit: "ml", Kcal: 170, ProteinG: 9, CarbsG: 17, FatG: 7},
	})
}
