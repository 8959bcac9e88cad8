package llm

import (
	"fmt"
	"strings"

	"github.com/hpungsan/kenbot/internal/listing"
)

// systemPrompts set the seller's voice per category.
var systemPrompts = map[listing.Category]string{
	listing.CategoryTruck: "Tu es Daniel Giroux, vendeur automobile expérimenté à Saint-Georges (Beauce).\n" +
		"Ton style est direct, confiant, vendeur mais crédible.\n" +
		"Tu écris pour Facebook Marketplace.\n" +
		"Pas d'exagération, pas d'invention, pas de jargon inutile.\n" +
		"Accent sur la robustesse, l'utilité, la valeur réelle.",
	listing.CategorySUV: "Tu es Daniel Giroux, vendeur automobile.\n" +
		"Style rassurant, pratique, orienté famille et polyvalence.\n" +
		"Clair, structuré, facile à lire sur mobile.",
	listing.CategoryExotic: "Tu es un vendeur automobile haut de gamme.\n" +
		"Style sobre, exclusif, élégant.\n" +
		"Phrases courtes. Ton premium.\n" +
		"Aucun emoji inutile. Aucun argument inventé.",
	listing.CategoryLuxury: "Tu es Daniel Giroux, vendeur automobile.\n" +
		"Style posé et raffiné, centré sur le confort et la finition.\n" +
		"Aucun superlatif gratuit. Aucun argument inventé.",
	listing.CategorySport: "Tu es Daniel Giroux, vendeur automobile.\n" +
		"Style énergique, axé sur le plaisir de conduite.\n" +
		"Aucun chiffre de performance qui ne figure pas dans les infos.",
}

const defaultSystemPrompt = "Tu es Daniel Giroux, vendeur automobile.\n" +
	"Style clair, humain, vendeur.\n" +
	"Optimisé pour Facebook Marketplace."

// SystemPrompt returns the tone profile for a category.
func SystemPrompt(c listing.Category) string {
	if p, ok := systemPrompts[c]; ok {
		return p
	}
	return defaultSystemPrompt
}

// UserPrompt lists the vehicle facts and the writing rules. Only provided
// facts appear; the VIN is included only when its disclosure is allowed.
// maxChars <= 0 means no length rule.
func UserPrompt(v *listing.Vehicle, equipment []string, maxChars int) string {
	var sb strings.Builder
	sb.WriteString("Infos véhicule :\n")

	fact := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "- %s : %s\n", label, value)
		}
	}
	fact("Titre", v.Title)
	fact("Marque", v.Brand)
	fact("Année", v.Year)
	fact("Prix", listing.FormatPrice(v.Price))
	fact("Kilométrage", listing.FormatMileage(v.Mileage))
	fact("Stock", v.Stock)
	if v.VIN != "" && listing.VINDisclosureAllowed(v) {
		fact("VIN", v.VIN)
	}
	fact("Transmission", v.Transmission)
	fact("Entraînement", v.Drivetrain)
	fact("Carburant", v.Fuel)
	fact("Carrosserie", v.Body)
	fact("Localisation", v.Location)
	fact("Lien", v.URL)

	if len(equipment) > 0 {
		sb.WriteString("\nÉquipements confirmés :\n")
		for _, e := range listing.StripOptionPrices(equipment) {
			fmt.Fprintf(&sb, "- %s\n", e)
		}
	}

	sb.WriteString("\nRègles :\n")
	sb.WriteString("- Texte vendeur\n")
	sb.WriteString("- Clair\n")
	sb.WriteString("- Aucun mensonge\n")
	sb.WriteString("- N'invente aucune option, aucun chiffre de performance ni aucune caractéristique absente des infos\n")
	sb.WriteString("- N'indique aucun prix par option\n")
	if maxChars > 0 {
		fmt.Fprintf(&sb, "- Maximum %d caractères\n", maxChars)
	}
	return sb.String()
}
