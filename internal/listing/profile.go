package listing

import (
	"strings"
	"unicode"
)

// Profile is the static content attached to a category.
type Profile struct {
	Category Category `json:"category"`
	Headline string   `json:"headline"`
	Bullets  []string `json:"bullets"`
	Proof    string   `json:"proof"`
	Hashtags []string `json:"hashtags"`
}

// profileDef holds the per-category template. Bullets are qualitative only:
// no horsepower, towing or acceleration figures, since none are supplied.
type profileDef struct {
	headline string // {title} and {brand} are substituted
	bullets  []string
	proof    string
	hashtags []string
}

// profileTable has one slot per category; TestProfileTableComplete fails when
// a category is added without a definition.
var profileTable = [categoryCount]profileDef{
	CategoryDaily: {
		headline: "🔥 {title} — Excellent rapport qualité/prix 🔥",
		bullets: []string{
			"✅ Inspection complète",
			"🚗 Prête à partir",
		},
		proof:    "Infos réelles, rien d’inventé.",
		hashtags: []string{"#Auto", "#VehiculeOccasion"},
	},
	CategoryExotic: {
		headline: "🔥 {title} — VÉHICULE D’EXCEPTION 🔥",
		bullets: []string{
			"🏎️ Performance et sensations de pilotage",
			"🎯 Prestige • exclusivité",
			"✨ Finition haut de gamme",
		},
		proof:    "Infos factuelles, rien d’inventé.",
		hashtags: []string{"#Supercar", "#Exotique"},
	},
	CategoryLuxury: {
		headline: "💎 {title} — Luxe & présence 💎",
		bullets: []string{
			"✨ Confort haut de gamme",
			"🎯 Image premium, conduite douce",
			"✅ Inspection complète",
		},
		proof:    "Infos réelles, pas de promesses floues.",
		hashtags: []string{"#Luxe", "#AutoDeLuxe", "#Premium"},
	},
	CategoryTruck: {
		headline: "🔥 {title} — CAMION ROBUSTE 🔥",
		bullets: []string{
			"💪 Solide, fiable, prêt à travailler",
			"🧰 Parfait pour chantier, remorquage ou famille",
			"🚚 Conçu pour le travail et le loisir",
		},
		proof:    "Texte basé sur données réelles (pas d’options inventées).",
		hashtags: []string{"#Truck", "#Pickup", "#4x4", "#Camion"},
	},
	CategorySUV: {
		headline: "🔥 {title} — VUS PARFAIT 🔥",
		bullets: []string{
			"🚙 VUS spacieux • confortable",
			"🛡️ Sécurité & stabilité 4 saisons",
			"✅ Parfait famille & roadtrips",
		},
		proof:    "Infos réelles, rien d’inventé.",
		hashtags: []string{"#VUS", "#SUV"},
	},
	CategorySport: {
		headline: "⚡ {title} — Performance au quotidien ⚡",
		bullets: []string{
			"🔥 Sensations + look",
			"🎯 Tenue de route & plaisir",
			"✅ Inspection complète",
		},
		proof:    "Clair, net, vendeur.",
		hashtags: []string{"#Sport", "#Performance", "#PassionAuto"},
	},
}

// DefaultBaseHashtags close every hashtag line.
var DefaultBaseHashtags = []string{
	"#VehiculeOccasion", "#AutoUsagée", "#Quebec", "#Beauce",
	"#SaintGeorges", "#KennebecDodge", "#DanielGiroux",
}

// GetProfile returns the content profile for a category with the headline
// filled from title and brand. The hashtag list is category tags, then a tag
// derived from the brand, then base, de-duplicated in that order.
func GetProfile(c Category, title, brand string, base []string) Profile {
	if c < 0 || c >= categoryCount {
		c = CategoryDaily
	}
	def := profileTable[c]

	title = normalizeLine(title)
	brand = normalizeLine(brand)
	headline := strings.NewReplacer("{title}", title, "{brand}", brand).Replace(def.headline)

	tags := make([]string, 0, len(def.hashtags)+1+len(base))
	tags = append(tags, def.hashtags...)
	if t := brandHashtag(brand); t != "" {
		tags = append(tags, t)
	}
	tags = append(tags, base...)

	return Profile{
		Category: c,
		Headline: normalizeLine(headline),
		Bullets:  append([]string(nil), def.bullets...),
		Proof:    def.proof,
		Hashtags: dedupeTags(tags),
	}
}

// brandHashtag turns "land rover" into "#LandRover" and "RAM" into "#Ram".
func brandHashtag(brand string) string {
	var sb strings.Builder
	for _, word := range strings.FieldsFunc(brand, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}
	if sb.Len() == 0 {
		return ""
	}
	return "#" + sb.String()
}

// dedupeTags is an exact-match, order-preserving de-duplication.
func dedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
