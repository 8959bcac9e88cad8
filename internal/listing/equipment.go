package listing

// EquipmentSource tags where displayed equipment lines came from.
type EquipmentSource string

const (
	SourceNone    EquipmentSource = ""
	SourceSticker EquipmentSource = "sticker"
	SourceDealer  EquipmentSource = "dealer"
)

// DealerEquipmentCap bounds dealer-list equipment lines.
const DealerEquipmentCap = 8

// Equipment is the selected equipment list and its source.
type Equipment struct {
	Lines  []string        `json:"lines"`
	Source EquipmentSource `json:"source"`
}

// ChooseEquipment picks exactly one source, in strict priority order:
// sticker lines, then the comfort list, then the features list. Sticker lines
// keep the manufacturer's order and are not capped; dealer lists are
// de-duplicated and capped at DealerEquipmentCap. Sources are never merged.
func ChooseEquipment(v *Vehicle, stickerLines []string) Equipment {
	sticker := make([]string, 0, len(stickerLines))
	for _, line := range stickerLines {
		if s := normalizeLine(line); s != "" {
			sticker = append(sticker, s)
		}
	}
	if len(sticker) > 0 {
		return Equipment{Lines: sticker, Source: SourceSticker}
	}

	if v == nil {
		return Equipment{}
	}
	for _, list := range [][]string{v.Comfort, v.Features} {
		if lines := capList(DedupeKeepOrder(list), DealerEquipmentCap); len(lines) > 0 {
			return Equipment{Lines: lines, Source: SourceDealer}
		}
	}
	return Equipment{}
}
