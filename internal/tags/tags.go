package tags

import (
	"encoding/json"
	"math/rand/v2"
)

// Category names a tag family on a meal.
type Category string

const (
	CategoryCuisines  Category = "cuisines"
	CategoryDiets     Category = "diets"
	CategoryMealTypes Category = "mealTypes"
)

// Color returns the fixed badge color of the category.
func (c Category) Color() string {
	switch c {
	case CategoryCuisines:
		return "primary"
	case CategoryDiets:
		return "secondary"
	case CategoryMealTypes:
		return "success"
	default:
		return "default"
	}
}

// StringList accepts a JSON string, an array of strings or null.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = StringList{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Values returns the non-empty entries in order.
func (l StringList) Values() []string {
	out := make([]string, 0, len(l))
	for _, v := range l {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Categories groups the three tag sources of a meal.
type Categories struct {
	Cuisines  StringList `json:"cuisines"`
	Diets     StringList `json:"diets"`
	MealTypes StringList `json:"mealTypes"`
}

// Tag is a single display badge.
type Tag struct {
	Value    string   `json:"value"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
}

// Result is the output of Build. TotalTagCount always counts the full list
// so callers can render "+N more".
type Result struct {
	ShuffledTags  []Tag `json:"shuffledTags"`
	TotalTagCount int   `json:"totalTagCount"`
}

// Shuffler permutes n elements in place through swap.
type Shuffler func(n int, swap func(i, j int))

// Builder builds tag lists. The zero value uses math/rand/v2.
type Builder struct {
	Shuffle Shuffler
}

// Build returns every tag when expanded or forceExpand is set, otherwise the
// first tag of each category. Order is randomized on every call.
func (b Builder) Build(c Categories, expanded, forceExpand bool) Result {
	sources := []struct {
		category Category
		values   []string
	}{
		{CategoryCuisines, c.Cuisines.Values()},
		{CategoryDiets, c.Diets.Values()},
		{CategoryMealTypes, c.MealTypes.Values()},
	}

	var full, limited []Tag
	for _, src := range sources {
		for i, v := range src.values {
			tag := Tag{Value: v, Color: src.category.Color(), Category: src.category}
			full = append(full, tag)
			if i == 0 {
				limited = append(limited, tag)
			}
		}
	}

	selected := limited
	if expanded || forceExpand {
		selected = full
	}

	out := make([]Tag, len(selected))
	copy(out, selected)
	b.shuffler()(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	return Result{ShuffledTags: out, TotalTagCount: len(full)}
}

func (b Builder) shuffler() Shuffler {
	if b.Shuffle != nil {
		return b.Shuffle
	}
	// rand.Shuffle is Fisher-Yates.
	return rand.Shuffle
}

// Build uses the default Builder.
func Build(c Categories, expanded, forceExpand bool) Result {
	return Builder{}.Build(c, expanded, forceExpand)
}
