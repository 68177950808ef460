// Package vehiclenlp spots vehicle makes and models in text read off an
// image, such as trunk badges and dealer plate frames.
package vehiclenlp

import (
	"strings"
	"unicode"
)

// Mention is one vehicle named in the text.
type Mention struct {
	Make  string // canonical, e.g. "Chevrolet"
	Model string // canonical, empty when only the make was read
	Span  string // the words it was read from
}

// makeAliases maps lower-case names and nicknames to canonical makes.
var makeAliases = map[string]string{
	"chevy":         "Chevrolet",
	"chevrolet":     "Chevrolet",
	"benz":          "Mercedes-Benz",
	"mercedes":      "Mercedes-Benz",
	"mercedes-benz": "Mercedes-Benz",
	"vw":            "Volkswagen",
	"volkswagen":    "Volkswagen",
	"toyota":        "Toyota",
	"honda":         "Honda",
	"ford":          "Ford",
	"bmw":           "BMW",
	"audi":          "Audi",
	"nissan":        "Nissan",
	"hyundai":       "Hyundai",
	"kia":           "Kia",
	"subaru":        "Subaru",
	"mazda":         "Mazda",
	"jeep":          "Jeep",
	"gmc":           "GMC",
	"dodge":         "Dodge",
	"lexus":         "Lexus",
	"acura":         "Acura",
	"tesla":         "Tesla",
	"porsche":       "Porsche",
	"volvo":         "Volvo",
	"buick":         "Buick",
	"cadillac":      "Cadillac",
	"lincoln":       "Lincoln",
	"infiniti":      "Infiniti",
	"genesis":       "Genesis",
	"mitsubishi":    "Mitsubishi",
	"chrysler":      "Chrysler",
	"land rover":    "Land Rover",
	"jaguar":        "Jaguar",
	"alfa romeo":    "Alfa Romeo",
	"fiat":          "Fiat",
	"rivian":        "Rivian",
	"polestar":      "Polestar",
}

// makeModels lists the models each make badges its vehicles with.
var makeModels = map[string][]string{
	"Toyota":        {"Camry", "Corolla", "RAV4", "Highlander", "Tacoma", "Tundra", "Prius", "4Runner", "Sienna", "Supra", "Venza", "C-HR", "Sequoia", "Land Cruiser"},
	"Honda":         {"Civic", "Accord", "CR-V", "Pilot", "Odyssey", "HR-V", "Ridgeline", "Fit", "Passport", "Insight"},
	"Ford":          {"F-150", "F-250", "F-350", "Mustang", "Explorer", "Escape", "Ranger", "Bronco", "Edge", "Expedition", "Maverick", "Focus", "Fusion", "Fiesta", "Transit"},
	"Chevrolet":     {"Silverado", "Equinox", "Malibu", "Tahoe", "Suburban", "Camaro", "Colorado", "Traverse", "Blazer", "Bolt", "Impala", "Trax", "Cruze", "Spark"},
	"BMW":           {"X3", "X5", "X1", "X7", "M3", "M5", "i4", "iX", "X6"},
	"Mercedes-Benz": {"C-Class", "E-Class", "S-Class", "GLC", "GLE", "A-Class", "CLA", "GLA", "GLB", "GLS", "EQS", "EQE"},
	"Audi":          {"A4", "A6", "A3", "Q5", "Q7", "Q3", "A5", "A8", "Q8", "e-tron", "RS5", "RS7", "S4", "TT"},
	"Nissan":        {"Altima", "Sentra", "Rogue", "Pathfinder", "Frontier", "Maxima", "Murano", "Titan", "Kicks", "Versa", "Armada", "Leaf"},
	"Hyundai":       {"Elantra", "Sonata", "Tucson", "Santa Fe", "Kona", "Palisade", "Venue", "Accent", "Santa Cruz"},
	"Kia":           {"Forte", "K5", "Sportage", "Telluride", "Sorento", "Seltos", "EV6", "EV9", "Soul", "Stinger", "Carnival", "Rio", "Niro"},
	"Volkswagen":    {"Golf", "Jetta", "Tiguan", "Atlas", "Passat", "Taos", "ID.4", "GTI", "Arteon", "Beetle"},
	"Subaru":        {"Outback", "Forester", "Crosstrek", "Impreza", "WRX", "Legacy", "Ascent", "BRZ"},
	"Mazda":         {"Mazda3", "Mazda6", "CX-5", "CX-9", "CX-30", "CX-50", "MX-5", "CX-90"},
	"Jeep":          {"Wrangler", "Grand Cherokee", "Cherokee", "Compass", "Renegade", "Gladiator", "Wagoneer"},
	"GMC":           {"Sierra", "Terrain", "Acadia", "Yukon", "Canyon"},
	"Dodge":         {"Charger", "Challenger", "Durango", "Hornet"},
	"Lexus":         {"RX", "ES", "NX", "IS", "GX", "LX", "UX"},
	"Acura":         {"TLX", "MDX", "RDX", "Integra", "ILX", "NSX"},
	"Tesla":         {"Model 3", "Model Y", "Model S", "Model X", "Cybertruck"},
	"Porsche":       {"911", "Cayenne", "Macan", "Taycan", "Panamera", "Boxster", "Cayman"},
	"Volvo":         {"XC90", "XC60", "XC40", "S60", "S90", "V60", "V90"},
	"Buick":         {"Enclave", "Encore", "Envision", "Regal"},
	"Cadillac":      {"Escalade", "CT5", "CT4", "XT5", "XT4", "XT6", "Lyriq"},
	"Lincoln":       {"Navigator", "Aviator", "Corsair", "Nautilus"},
	"Infiniti":      {"Q50", "Q60", "QX50", "QX60", "QX80"},
	"Genesis":       {"G70", "G80", "G90", "GV70", "GV80", "GV60"},
	"Mitsubishi":    {"Outlander", "Eclipse Cross", "Mirage"},
	"Chrysler":      {"Pacifica", "300"},
	"Land Rover":    {"Range Rover", "Defender", "Discovery", "Evoque"},
	"Jaguar":        {"F-Pace", "E-Pace", "XF", "XE", "F-Type", "I-Pace"},
	"Alfa Romeo":    {"Giulia", "Stelvio", "Tonale"},
	"Fiat":          {"500", "500X"},
	"Rivian":        {"R1T", "R1S"},
}

var (
	// modelsByMake maps make -> lower-case model -> canonical model.
	modelsByMake map[string]map[string]string
	// badges maps lower-case models that identify a single make on their own.
	badges map[string]string
	// maxWords is the longest alias or model name, in words.
	maxWords int
)

func init() {
	modelsByMake = make(map[string]map[string]string, len(makeModels))
	owners := make(map[string][]string)
	for mk, models := range makeModels {
		byLower := make(map[string]string, len(models))
		for _, m := range models {
			l := strings.ToLower(m)
			byLower[l] = m
			owners[l] = append(owners[l], mk)
			maxWords = max(maxWords, len(strings.Fields(l)))
		}
		modelsByMake[mk] = byLower
	}
	for alias := range makeAliases {
		maxWords = max(maxWords, len(strings.Fields(alias)))
	}

	badges = make(map[string]string)
	for l, mks := range owners {
		// Short or all-digit names ("RX", "300") are too common in plate text.
		if len(mks) == 1 && len(l) >= 4 && strings.ContainsFunc(l, unicode.IsLetter) {
			badges[l] = mks[0]
		}
	}
}

// Canonical returns the canonical make for name or one of its nicknames, and
// name unchanged when it is not a known make.
func Canonical(name string) string {
	if mk, ok := makeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mk
	}
	return name
}

// Find returns the vehicles named in texts, in reading order. A make
// directly followed by one of its models yields a single mention; a model
// sold by one make is recognized without the make. Repeats are dropped.
func Find(texts ...string) []Mention {
	var out []Mention
	seen := make(map[[2]string]bool)
	add := func(m Mention) {
		k := [2]string{m.Make, m.Model}
		if !seen[k] {
			seen[k] = true
			out = append(out, m)
		}
	}

	for _, text := range texts {
		words := tokenize(text)
		for i := 0; i < len(words); {
			if mk, n := match(words[i:], makeAliases); n > 0 {
				model, m := match(words[i+n:], modelsByMake[mk])
				add(Mention{Make: mk, Model: model, Span: strings.Join(words[i:i+n+m], " ")})
				i += n + m
				continue
			}
			if mk, n := match(words[i:], badges); n > 0 {
				add(Mention{Make: mk, Model: modelsByMake[mk][lowerJoin(words[i:i+n])], Span: strings.Join(words[i:i+n], " ")})
				i += n
				continue
			}
			i++
		}
	}
	return out
}

// Contradicts reports whether mentions name vehicles and none of them is of
// make vehicleMake. Text that names no vehicle contradicts nothing.
func Contradicts(vehicleMake string, mentions []Mention) bool {
	if len(mentions) == 0 {
		return false
	}
	want := Canonical(vehicleMake)
	for _, m := range mentions {
		if strings.EqualFold(m.Make, want) {
			return false
		}
	}
	return true
}

// match finds the longest run of leading words that is a key of index.
func match(words []string, index map[string]string) (string, int) {
	for n := min(maxWords, len(words)); n > 0; n-- {
		if v, ok := index[lowerJoin(words[:n])]; ok {
			return v, n
		}
	}
	return "", 0
}

func lowerJoin(words []string) string {
	return strings.ToLower(strings.Join(words, " "))
}

// tokenize splits text into words, keeping the hyphens and dots found in
// names like "CR-V" and "ID.4".
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	words := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-."); f != "" {
			words = append(words, f)
		}
	}
	return words
}
