package listing

import (
	"strings"
)

// DefaultShortFormLimit is the marketplace character budget.
const DefaultShortFormLimit = 800

// Dealer identifies who publishes the listing. Rendered in the location line,
// the contact block and the hashtag line.
type Dealer struct {
	Name     string   `json:"name"`
	Seller   string   `json:"seller"`
	Phone    string   `json:"phone"`
	Location string   `json:"location"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// DefaultDealer returns the dealership the listings are written for.
func DefaultDealer() Dealer {
	return Dealer{
		Name:     "Kennebec Dodge Chrysler",
		Seller:   "Daniel Giroux",
		Phone:    "418-222-3939",
		Location: "Saint-Georges (Beauce)",
		Hashtags: append([]string(nil), DefaultBaseHashtags...),
	}
}

// Composer assembles channel text. It holds configuration only, so one
// Composer can serve concurrent callers.
type Composer struct {
	Dealer             Dealer
	ShortFormLimit     int
	LongEquipmentCap   int
	ShortEquipmentCap  int
	StickerURLTemplate string
}

// NewComposer returns a Composer with the default dealer and limits.
func NewComposer() *Composer {
	return &Composer{
		Dealer:             DefaultDealer(),
		ShortFormLimit:     DefaultShortFormLimit,
		LongEquipmentCap:   10,
		ShortEquipmentCap:  8,
		StickerURLTemplate: DefaultStickerURLTemplate,
	}
}

// ComposeLongForm renders the long-form channel with the default Composer.
func ComposeLongForm(v *Vehicle, c Category, eq Equipment) string {
	return NewComposer().LongForm(v, c, eq)
}

// ComposeShortForm renders the short-form channel with the default Composer
// and the given character limit.
func ComposeShortForm(v *Vehicle, c Category, eq Equipment, limit int) string {
	comp := NewComposer()
	comp.ShortFormLimit = limit
	return comp.ShortForm(v, c, eq)
}

// Static boilerplate.
const (
	legalLine      = "📄 Vente commerciale — 2 taxes applicables"
	inspectionLine = "✅ Inspection complète — véhicule propre & prêt à partir."
	tradeInLine    = "🔁 J’accepte les échanges : 🚗 auto • 🏍️ moto • 🛥️ bateau • 🛻 VTT • 🏁 côte-à-côte"
	tradeInPhotos  = "📸 Envoie-moi les photos + infos de ton échange (année / km / paiement restant) → je te reviens vite."
	privateMessage = "📩 Écris-moi en privé — ou texte direct"
	quickReply     = "📩 Écris-moi en privé — réponse rapide"
	unavailable    = "⚠️ Annonce non disponible — informations du véhicule incomplètes."
)

// facts are the per-vehicle values both channels render, resolved once.
type facts struct {
	title     string
	price     string
	mileage   string
	vin       string // empty when absent or not disclosable
	sticker   string // lookup URL, only with a disclosable VIN
	location  string
	details   []detail
	profile   Profile
	equipment Equipment
}

type detail struct {
	label string
	value string
}

func (c *Composer) facts(v *Vehicle, cat Category, eq Equipment) facts {
	if v == nil {
		v = &Vehicle{}
	}
	f := facts{
		title:     v.Title,
		price:     FormatPrice(v.Price),
		mileage:   FormatMileage(v.Mileage),
		profile:   GetProfile(cat, v.Title, v.Brand, c.Dealer.Hashtags),
		equipment: eq,
	}

	if v.VIN != "" && VINDisclosureAllowed(v) {
		f.vin = v.VIN
		f.sticker = StickerURL(c.StickerURLTemplate, v.VIN)
	}

	switch {
	case v.Location != "":
		f.location = v.Location
	case c.Dealer.Name != "" && c.Dealer.Location != "":
		f.location = c.Dealer.Name + " — " + c.Dealer.Location
	default:
		f.location = c.Dealer.Name + c.Dealer.Location
	}

	candidates := []detail{
		{"Inventaire", v.Stock},
		{"Année", v.Year},
		{"VIN", f.vin},
		{"Transmission", firstNonEmpty(v.Transmission, v.spec("transmission"))},
		{"Cylindres", v.spec("cylindres")},
		{"Entraînement", firstNonEmpty(v.Drivetrain, v.spec("entrainement", "entraînement"))},
		{"Carburant", firstNonEmpty(v.Fuel, v.spec("carburant"))},
		{"Carrosserie", v.Body},
		{"Passagers", v.spec("passagers")},
		{"Couleur ext.", v.spec("couleur ext.")},
		{"Couleur int.", v.spec("couleur int.")},
	}
	for _, d := range candidates {
		if d.value != "" {
			f.details = append(f.details, d)
		}
	}
	return f
}

// LongForm renders the long-form listing. Blocks appear in a fixed order and
// each is skipped when it has nothing to show.
func (c *Composer) LongForm(v *Vehicle, cat Category, eq Equipment) string {
	f := c.facts(v, cat, eq)
	var doc document

	if f.title != "" {
		doc.block("🔥 " + f.title + " 🔥")
	}
	if v != nil {
		if hl := formatHeadline(v.HeadlineFeatures); hl != "" {
			doc.block(hl)
		}
	}
	doc.block(f.profile.Bullets...)

	doc.block(
		wrapIf(f.price, "💥 ", " 💥"),
		wrapIf(f.mileage, "📊 Kilométrage : ", ""),
		wrapIf(f.location, "📍 ", ""),
	)

	if len(f.details) > 0 {
		lines := []string{"🚗 DÉTAILS"}
		for _, d := range f.details {
			lines = append(lines, "✅ "+d.label+" : "+d.value)
		}
		doc.block(lines...)
	}

	doc.block(legalLine, inspectionLine, wrapIf(f.profile.Proof, "🛡️ ", ""))
	doc.block(c.longEquipment(f.equipment)...)

	if v != nil && v.URL != "" {
		doc.block("🔗 Fiche complète :", v.URL)
	}
	if f.sticker != "" {
		doc.block("🧾 Window Sticker :", f.sticker)
	}

	doc.block(tradeInLine, tradeInPhotos)

	d := c.Dealer
	doc.block(
		wrapIf(d.Seller, "👋 Publiée par ", " — je réponds vite (pas un robot, promis 😄)"),
		wrapIf(d.Location, "📍 ", " | Prise de possession rapide possible"),
	)
	doc.block(privateMessage, c.phoneLine())
	doc.block(strings.Join(f.profile.Hashtags, " "))

	return doc.String()
}

// ShortForm renders the short-form listing and enforces ShortFormLimit on the
// whole composed text, so truncation eats the tail (hashtags, contact)
// before any fact near the top.
func (c *Composer) ShortForm(v *Vehicle, cat Category, eq Equipment) string {
	f := c.facts(v, cat, eq)
	var doc document

	specs := make([]string, 0, 5)
	if v != nil {
		for _, s := range []string{v.Year, firstNonEmpty(v.Transmission, v.spec("transmission")),
			firstNonEmpty(v.Drivetrain, v.spec("entrainement", "entraînement")),
			firstNonEmpty(v.Fuel, v.spec("carburant")), v.Body} {
			if s != "" {
				specs = append(specs, s)
			}
		}
	}

	headline := f.profile.Headline
	if f.title == "" {
		headline = ""
	}
	stock := ""
	if v != nil {
		stock = v.Stock
	}
	doc.block(
		headline,
		wrapIf(f.price, "💰 Prix : ", ""),
		wrapIf(f.mileage, "📊 Km : ", ""),
		wrapIf(stock, "🧾 Stock : ", ""),
		wrapIf(f.vin, "🔢 VIN : ", ""),
		wrapIf(strings.Join(specs, " • "), "⚙️ ", ""),
		wrapIf(f.location, "📍 ", ""),
	)

	bullets := append([]string(nil), f.profile.Bullets...)
	bullets = append(bullets, legalLine+" • Inspection complète")
	doc.block(bullets...)

	doc.block(c.shortEquipment(f.equipment)...)

	var links []string
	if v != nil && v.URL != "" {
		links = append(links, "🔗 Fiche complète : "+v.URL)
	}
	if f.sticker != "" {
		links = append(links, "🧾 Window Sticker : "+f.sticker)
	}
	doc.block(links...)

	doc.block(quickReply, c.phoneLine(), strings.Join(f.profile.Hashtags, " "))

	limit := c.ShortFormLimit
	if limit <= 0 {
		limit = DefaultShortFormLimit
	}
	// One character is reserved for the terminating newline.
	body := Shorten(doc.body(), limit-1)
	if body == "" {
		return ""
	}
	return body + "\n"
}

// Unavailable returns the placeholder pair emitted in lenient mode when a
// record cannot produce a listing.
func (c *Composer) Unavailable() (long, short string) {
	var doc document
	doc.block(unavailable, c.phoneLine())
	text := doc.String()
	return text, text
}

func (c *Composer) phoneLine() string {
	d := c.Dealer
	switch {
	case d.Seller != "" && d.Phone != "":
		return "📞 " + d.Seller + " — " + d.Phone
	case d.Phone != "":
		return "📞 " + d.Phone
	}
	return ""
}

func (c *Composer) longEquipment(eq Equipment) []string {
	if len(eq.Lines) == 0 {
		return nil
	}

	if eq.Source == SourceSticker {
		lines := []string{"✨ ACCESSOIRES OPTIONNELS (Window Sticker)"}
		if hasMarkers(eq.Lines) {
			// Marker-tagged sticker lines keep their layout; only prices go.
			return append(lines, StripOptionPrices(eq.Lines)...)
		}
		return append(lines, bullets(StripOptionPrices(eq.Lines), c.LongEquipmentCap)...)
	}

	lines := []string{"✨ ÉQUIPEMENTS & CONFORT — CE QUI FAIT LA DIFFÉRENCE"}
	return append(lines, bullets(eq.Lines, c.LongEquipmentCap)...)
}

func (c *Composer) shortEquipment(eq Equipment) []string {
	if len(eq.Lines) == 0 {
		return nil
	}

	if eq.Source == SourceSticker {
		items := eq.Lines
		if hasMarkers(items) {
			items = nil
			for _, line := range eq.Lines {
				if rest, ok := strings.CutPrefix(line, HeaderMarker); ok {
					items = append(items, rest)
				}
			}
		}
		return append([]string{"✨ Options (Window Sticker) :"}, bullets(StripOptionPrices(items), c.ShortEquipmentCap)...)
	}

	return append([]string{"✨ Options & confort :"}, bullets(eq.Lines, c.ShortEquipmentCap)...)
}

// bullets renders up to limit items as "■ item".
func bullets(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if limit > 0 && len(out) >= limit {
			break
		}
		if t := cleanBullet(it); t != "" {
			out = append(out, "■ "+t)
		}
	}
	return out
}

func cleanBullet(s string) string {
	return strings.TrimSpace(strings.TrimLeft(normalizeLine(s), "■•-–—✅ "))
}

func hasMarkers(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, HeaderMarker) || strings.Contains(l, DetailMarker) {
			return true
		}
	}
	return false
}

// formatHeadline renders dealer headline features as "*a • b*".
func formatHeadline(s string) string {
	h := strings.ReplaceAll(normalizeLine(s), "*", "")
	h = strings.Trim(h, " •")
	if h == "" {
		return ""
	}
	return "*" + h + "*"
}

func wrapIf(value, prefix, suffix string) string {
	if value == "" {
		return ""
	}
	return prefix + value + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// document collects blocks of lines separated by one blank line. Empty lines
// inside a block and empty blocks are dropped.
type document struct {
	blocks [][]string
}

func (d *document) block(lines ...string) {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > 0 {
		d.blocks = append(d.blocks, kept)
	}
}

func (d *document) body() string {
	parts := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		parts[i] = strings.Join(b, "\n")
	}
	return strings.Join(parts, "\n\n")
}

// String returns the newline-terminated document.
func (d *document) String() string {
	body := d.body()
	if body == "" {
		return ""
	}
	return body + "\n"
}
