package catalog

import "strings"

// DefaultCategory is used when no keyword group matches.
const DefaultCategory = "General"

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules are checked in order; the first group with a keyword
// contained in the uppercased name wins.
var categoryRules = []categoryRule{
	{"Beverages", []string{"TEA", "COFFEE", "BRU", "LIPTON", "TAJ MAHAL"}},
	{"Biscuits", []string{"BISCUIT", "BOURBON", "MARIE", "TIGER", "MONACO", "KRACKJACK", "HIDE & SEEK", "HAPPY"}},
	{"Confectionery", []string{"CHOCOLATE", "DAIRY MILK", "5 STAR", "KIT KAT", "MUNCH", "CHOCOPIE"}},
	{"Instant Food", []string{"MAGGI", "YIPPEE", "KNOOR"}},
	{"Oils & Ghee", []string{"GHEE", "OIL", "SAFFOLA", "PARACHUTE", "AMLA", "SARSO", "NAVRATNA"}},
	{"Food Products", []string{"JAM", "KETCHUP", "KISSAN", "HAJMOLA", "MADHU SUDAN", "MILK FOOD", "MOTHER DAIRY"}},
	{"Health Drinks", []string{"HORLICKS", "BOURNVITA", "QUACKER OATS"}},
	{"Personal Care", []string{"SOAP", "SHAMPOO", "PASTE", "BRUSH", "CLOSEUP", "COLGATE", "DABUR", "PEPSODENT"}},
	{"Personal Care", []string{"CINTHOL", "LUX", "DOVE", "PEARS", "LIFEBOUY", "SANTOOR", "DETTOL", "VIVEL"}},
	{"Hair Care", []string{"CLINIC", "H&S", "SUNSILK", "AYUR", "TRESEME", "VATIKA", "HAIR CARE", "HIMALAYA"}},
	{"Skin Care", []string{"FAIR", "PONDS", "CREAM", "LOTION", "GARNIER", "ALMOND DROP"}},
	{"Fragrance", []string{"DEO", "DENVER", "PERFUME", "FIGARO"}},
	{"Detergents", []string{"DETERGENT", "SURF", "ARIEL", "TIDE", "WHEEL", "RIN", "EZEE"}},
	{"Cleaners", []string{"HARPIC", "LIZOL", "COLIN", "VIM", "EXO", "CHERRY"}},
	{"Pest Control", []string{"ALL OUT", "HIT", "GOOD KNIGHT", "MORTEIN", "LAXMANREKHA"}},
	{"Health Care", []string{"VICKS", "ENO", "DETTOL LIQUID", "ANTISEPTIC"}},
	{"Personal Hygiene", []string{"STAYFREE", "WHISPER", "PAMPERS"}},
	{"Batteries", []string{"DURACELL", "EVEREADY", "BATTERY"}},
	{"Shaving", []string{"BLADE", "GILLETTE", "WILKINSON"}},
	{"Personal Accessories", []string{"FOAM", "VEET"}},
	{"Ayurvedic Products", []string{"PATANJALI"}},
}

// GuessCategory derives a category from a product name.
func GuessCategory(name string) string {
	upper := strings.ToUpper(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(upper, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}
