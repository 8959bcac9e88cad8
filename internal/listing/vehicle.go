package listing

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Vehicle is the normalized form of one listing record. Absent, empty and
// placeholder values ("0", "null", "None", "") all collapse to the zero value
// here, so no downstream component has to re-check them.
type Vehicle struct {
	Title            string
	Brand            string
	Price            Amount
	Mileage          Amount
	Stock            string
	VIN              string // empty unless it passed ValidVIN
	Location         string
	URL              string
	Year             string
	Trim             string
	Transmission     string
	Fuel             string
	Drivetrain       string
	Body             string
	HeadlineFeatures string
	Comfort          []string
	Features         []string
	Specs            map[string]string
	Notes            string
}

// Amount is a price or mileage value. A numeric amount renders with digit
// grouping; a free-text amount ("Sur demande") renders verbatim.
type Amount struct {
	value  float64
	text   string
	number bool
}

// NumberAmount returns a numeric amount. Zero or negative values are absent.
func NumberAmount(v float64) Amount {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}
	}
	return Amount{value: v, number: true}
}

// IsZero reports whether the amount was not provided.
func (a Amount) IsZero() bool {
	return !a.number && a.text == ""
}

// Number returns the numeric value, if the amount is numeric.
func (a Amount) Number() (float64, bool) {
	return a.value, a.number
}

// vinRegex: 17 alphanumeric characters, excluding I, O, Q.
var vinRegex = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// ValidVIN reports whether vin is a syntactically valid VIN (case-insensitive).
func ValidVIN(vin string) bool {
	return vinRegex.MatchString(strings.ToUpper(strings.TrimSpace(vin)))
}

// amountRegex accepts "25000", "25 000 $", "$25,000", "32 000 km".
var amountRegex = regexp.MustCompile(`(?i)^\$?\s*(\d[\d\s,]*(?:\.\d+)?)\s*(?:\$|km|kms)?$`)

// isPlaceholder reports whether s is one of the "not provided" spellings.
func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "", "0", "null", "none":
		return true
	}
	return false
}

// DecodeVehicle parses a JSON object into a normalized Vehicle.
func DecodeVehicle(data []byte) (*Vehicle, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode vehicle: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode vehicle: expected a JSON object")
	}
	return NewVehicle(raw), nil
}

// NewVehicle builds a Vehicle from a flat key-value record. Field aliases are
// resolved here: brand/make, mileage/km, notes/description.
func NewVehicle(raw map[string]any) *Vehicle {
	v := &Vehicle{
		Title:            field(raw, "title"),
		Brand:            field(raw, "brand", "make"),
		Price:            amount(raw, "price"),
		Mileage:          amount(raw, "mileage", "km"),
		Stock:            strings.ToUpper(field(raw, "stock")),
		Location:         field(raw, "location"),
		URL:              field(raw, "url"),
		Year:             field(raw, "year"),
		Trim:             field(raw, "trim"),
		Transmission:     field(raw, "transmission"),
		Fuel:             field(raw, "fuel"),
		Drivetrain:       field(raw, "drivetrain"),
		Body:             field(raw, "body"),
		HeadlineFeatures: field(raw, "headline_features"),
		Comfort:          stringList(raw["comfort"]),
		Features:         stringList(raw["features"]),
		Specs:            specsMap(raw["specs"]),
	}

	if vin := strings.ToUpper(field(raw, "vin")); ValidVIN(vin) {
		v.VIN = vin
	}

	for _, key := range []string{"notes", "description"} {
		if s, ok := raw[key].(string); ok {
			if notes := NormalizeWhitespace(stripMarkup(s)); !isPlaceholder(notes) {
				v.Notes = notes
				break
			}
		}
	}

	return v
}

// field returns the first non-placeholder value among keys, as a single line.
func field(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		s := normalizeLine(stringify(raw[key]))
		if !isPlaceholder(s) {
			return s
		}
	}
	return ""
}

// amount returns the first provided amount among keys.
func amount(raw map[string]any, keys ...string) Amount {
	for _, key := range keys {
		if a := parseAmount(raw[key]); !a.IsZero() {
			return a
		}
	}
	return Amount{}
}

func parseAmount(x any) Amount {
	switch val := x.(type) {
	case float64:
		return NumberAmount(val)
	case int:
		return NumberAmount(float64(val))
	case int64:
		return NumberAmount(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Amount{}
		}
		return NumberAmount(f)
	case string:
		s := normalizeLine(val)
		if isPlaceholder(s) {
			return Amount{}
		}
		if m := amountRegex.FindStringSubmatch(s); m != nil {
			digits := strings.NewReplacer(" ", "", ",", "").Replace(m[1])
			if f, err := strconv.ParseFloat(digits, 64); err == nil {
				return NumberAmount(f)
			}
		}
		return Amount{text: s}
	}
	return Amount{}
}

// stringify renders scalar JSON values; objects and arrays yield "".
func stringify(x any) string {
	switch val := x.(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatFloat(val, 'f', 0, 64)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case json.Number:
		return val.String()
	}
	return ""
}

// stringList accepts a JSON array of strings or a newline-separated string.
func stringList(x any) []string {
	var items []string
	switch val := x.(type) {
	case []any:
		for _, it := range val {
			items = append(items, stringify(it))
		}
	case []string:
		items = val
	case string:
		items = strings.Split(val, "\n")
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := normalizeLine(stripMarkup(it)); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func specsMap(x any) map[string]string {
	m, ok := x.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s := normalizeLine(stringify(val)); !isPlaceholder(s) {
			out[strings.ToLower(strings.TrimSpace(k))] = s
		}
	}
	return out
}

// spec returns the first non-empty spec value among keys.
func (v *Vehicle) spec(keys ...string) string {
	for _, k := range keys {
		if s := v.Specs[k]; s != "" {
			return s
		}
	}
	return ""
}

// blockElements end a line of text when flattening dealer-feed markup.
var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true,
}

// stripMarkup flattens HTML fragments and entities that dealer feeds leave in
// free-text fields. Plain strings are returned untouched.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)
	return sb.String()
}

// StockFromSlug extracts the trailing inventory code from a listing slug or
// output file name: "ram-1500-laramie-k1234_facebook.txt" → "K1234". A name
// without a "-" separator carries no inventory code and yields "".
func StockFromSlug(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "_facebook.txt")
	s = strings.TrimSuffix(s, "_marketplace.txt")
	i := strings.LastIndex(s, "-")
	if i < 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(s[i+1:]))
}
