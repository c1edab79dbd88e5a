package domain

import (
	"ingredientcore/pkg/domain/shadow"
	"ingredientcore/pkg/schema"
)

// Table names of the catalog entities.
const (
	TableUnits             = "ingredient_units"
	TableFoods             = "ingredient_foods"
	TableFoodExtras        = "ingredient_food_extras"
	TableRecipeIngredients = "recipes_ingredients"
)

func timestamps() []schema.Column {
	return []schema.Column{
		{Name: "created_at", Type: schema.TypeTimestamp, NotNull: true},
		{Name: "updated_at", Type: schema.TypeTimestamp, NotNull: true},
	}
}

func fuzzySearch(pairs []shadow.Pair) []schema.SearchField {
	out := make([]schema.SearchField, len(pairs))
	for i, p := range pairs {
		out[i] = schema.SearchField{Field: p.Field, Shape: schema.ShapeFuzzy}
	}
	return out
}

// UnitsTable describes ingredient_units.
func UnitsTable() schema.Table {
	return schema.Table{
		Name: TableUnits,
		Columns: append([]schema.Column{
			{Name: "id", Type: schema.TypeID, PrimaryKey: true},
			{Name: "group_id", Type: schema.TypeID, NotNull: true, Indexed: true},
			{Name: "name", Type: schema.TypeText},
			{Name: "description", Type: schema.TypeText},
			{Name: "abbreviation", Type: schema.TypeText},
			{Name: "use_abbreviation", Type: schema.TypeBool, NotNull: true},
			{Name: "fraction", Type: schema.TypeBool, NotNull: true},
			{Name: "name_normalized", Type: schema.TypeText},
			{Name: "abbreviation_normalized", Type: schema.TypeText},
		}, timestamps()...),
		Search: fuzzySearch(unitShadows.Pairs()),
		Unique: []schema.UniqueKey{{Field: "name", Scope: "group_id"}},
	}
}

// FoodsTable describes ingredient_foods.
func FoodsTable() schema.Table {
	return schema.Table{
		Name: TableFoods,
		Columns: append([]schema.Column{
			{Name: "id", Type: schema.TypeID, PrimaryKey: true},
			{Name: "group_id", Type: schema.TypeID, NotNull: true, Indexed: true},
			{Name: "name", Type: schema.TypeText},
			{Name: "description", Type: schema.TypeText},
			{Name: "label_id", Type: schema.TypeID, Indexed: true},
			{Name: "name_normalized", Type: schema.TypeText},
		}, timestamps()...),
		Search: fuzzySearch(foodShadows.Pairs()),
		Unique: []schema.UniqueKey{{Field: "name", Scope: "group_id"}},
	}
}

// FoodExtrasTable describes ingredient_food_extras, cascade-deleted with their food.
func FoodExtrasTable() schema.Table {
	return schema.Table{
		Name: TableFoodExtras,
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeID, PrimaryKey: true},
			{Name: "ingredient_food_id", Type: schema.TypeID, NotNull: true, Indexed: true,
				References: &schema.ForeignKey{Table: TableFoods, Column: "id", OnDelete: "CASCADE"}},
			{Name: "key_name", Type: schema.TypeText, NotNull: true},
			{Name: "value", Type: schema.TypeText},
		},
	}
}

// RecipeIngredientsTable describes recipes_ingredients.
func RecipeIngredientsTable() schema.Table {
	return schema.Table{
		Name: TableRecipeIngredients,
		Columns: append([]schema.Column{
			{Name: "id", Type: schema.TypeSerial, PrimaryKey: true},
			{Name: "position", Type: schema.TypeInteger, Indexed: true},
			{Name: "recipe_id", Type: schema.TypeID, Indexed: true},
			{Name: "title", Type: schema.TypeText},
			{Name: "note", Type: schema.TypeText},
			{Name: "unit_id", Type: schema.TypeID, Indexed: true,
				References: &schema.ForeignKey{Table: TableUnits, Column: "id"}},
			{Name: "food_id", Type: schema.TypeID, Indexed: true,
				References: &schema.ForeignKey{Table: TableFoods, Column: "id"}},
			{Name: "quantity", Type: schema.TypeFloat},
			{Name: "original_text", Type: schema.TypeText},
			{Name: "reference_id", Type: schema.TypeID},
			{Name: "note_normalized", Type: schema.TypeText},
			{Name: "original_text_normalized", Type: schema.TypeText},
		}, timestamps()...),
		Search: fuzzySearch(ingredientShadows.Pairs()),
	}
}

// Tables lists every catalog table in foreign-key dependency order.
func Tables() []schema.Table {
	return []schema.Table{UnitsTable(), FoodsTable(), FoodExtrasTable(), RecipeIngredientsTable()}
}

// EnsureTables establishes the plan of every catalog table in cat, in
// dependency order.
func EnsureTables(cat *schema.Catalog) ([]schema.Plan, error) {
	tables := Tables()
	plans := make([]schema.Plan, 0, len(tables))
	for _, t := range tables {
		p, err := cat.Ensure(t)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
