package nutrition

import "sort"

// Nutrient is one of the canonical nutrient names the backend emits in
// DietDay totals.
type Nutrient int

const (
	NutrientUnknown Nutrient = iota
	NutrientEnergy
	NutrientProtein
	NutrientFat
	NutrientCarbs
	NutrientFiber
	NutrientSugars
	NutrientSodium
	NutrientCholesterol
)

// Canonical nutrient keys as they appear in totalNutrients maps.
const (
	KeyEnergy      = "Energy kcal"
	KeyProtein     = "Protein g"
	KeyFat         = "Total lipid (fat) g"
	KeyCarbs       = "Carbohydrates g"
	KeyFiber       = "Fiber, total dietary g"
	KeySugars      = "Sugars, total g"
	KeySodium      = "Sodium, Na mg"
	KeyCholesterol = "Cholesterol mg"
)

var nutrientsByKey = map[string]Nutrient{
	KeyEnergy:      NutrientEnergy,
	KeyProtein:     NutrientProtein,
	KeyFat:         NutrientFat,
	KeyCarbs:       NutrientCarbs,
	KeyFiber:       NutrientFiber,
	KeySugars:      NutrientSugars,
	KeySodium:      NutrientSodium,
	KeyCholesterol: NutrientCholesterol,
}

// ParseNutrient maps a canonical key to its Nutrient. Unknown keys return
// NutrientUnknown and false.
func ParseNutrient(key string) (Nutrient, bool) {
	n, ok := nutrientsByKey[key]
	if !ok {
		return NutrientUnknown, false
	}
	return n, true
}

// Display is the presentation metadata of a nutrient.
type Display struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Unit  string `json:"unit"`
}

// Key returns the canonical map key, or "" for NutrientUnknown.
func (n Nutrient) Key() string {
	switch n {
	case NutrientEnergy:
		return KeyEnergy
	case NutrientProtein:
		return KeyProtein
	case NutrientFat:
		return KeyFat
	case NutrientCarbs:
		return KeyCarbs
	case NutrientFiber:
		return KeyFiber
	case NutrientSugars:
		return KeySugars
	case NutrientSodium:
		return KeySodium
	case NutrientCholesterol:
		return KeyCholesterol
	default:
		return ""
	}
}

func (n Nutrient) Display() Display {
	switch n {
	case NutrientEnergy:
		return Display{Label: "Calories", Icon: "flame", Color: "warning", Unit: "kcal"}
	case NutrientProtein:
		return Display{Label: "Protein", Icon: "drumstick", Color: "primary", Unit: "g"}
	case NutrientFat:
		return Display{Label: "Fats", Icon: "droplet", Color: "secondary", Unit: "g"}
	case NutrientCarbs:
		return Display{Label: "Carbs", Icon: "wheat", Color: "success", Unit: "g"}
	case NutrientFiber:
		return Display{Label: "Fiber", Icon: "leaf", Color: "success", Unit: "g"}
	case NutrientSugars:
		return Display{Label: "Sugars", Icon: "candy", Color: "danger", Unit: "g"}
	case NutrientSodium:
		return Display{Label: "Sodium", Icon: "salt", Color: "default", Unit: "mg"}
	case NutrientCholesterol:
		return Display{Label: "Cholesterol", Icon: "heart", Color: "danger", Unit: "mg"}
	default:
		return Display{Label: "Other", Icon: "circle", Color: "default"}
	}
}

// NutrientAmount is one entry of a totalNutrients map.
type NutrientAmount struct {
	Value      float64 `json:"value"`
	UnitName   string  `json:"unitName"`
	NutrientID int     `json:"nutrientId"`
}

// NutrientTotals is keyed by canonical nutrient name.
type NutrientTotals map[string]NutrientAmount

// Value returns the value for key, or 0 when the entry is missing.
func (t NutrientTotals) Value(key string) float64 {
	if t == nil {
		return 0
	}
	return t[key].Value
}

// NutrientDisplay is a totals entry decorated for rendering.
type NutrientDisplay struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Display
}

// DisplayTotals returns the entries of t ordered by Nutrient, with unknown
// nutrients last in key order. Unknown entries keep the unit sent by the
// backend.
func DisplayTotals(t NutrientTotals) []NutrientDisplay {
	out := make([]NutrientDisplay, 0, len(t))
	for key, amount := range t {
		n, _ := ParseNutrient(key)
		d := n.Display()
		unit := amount.UnitName
		if unit == "" {
			unit = d.Unit
		}
		if d.Label == "Other" {
			d.Label = key
		}
		out = append(out, NutrientDisplay{Key: key, Value: amount.Value, Unit: unit, Display: d})
	}

	sort.Slice(out, func(i, j int) bool {
		ni, _ := ParseNutrient(out[i].Key)
		nj, _ := ParseNutrient(out[j].Key)
		if (ni == NutrientUnknown) != (nj == NutrientUnknown) {
			return nj == NutrientUnknown
		}
		if ni == NutrientUnknown {
			return out[i].Key < out[j].Key
		}
		return ni < nj
	})
	return out
}
