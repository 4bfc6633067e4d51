package utils

// Bidirectional mapping between UI-facing enum tokens and the storage tokens
// persisted in the buyers table. Every create/update/import call site encodes
// through here and export decodes through here; the tables must stay exact
// inverses of each other.

var bhkEncodeTable = map[string]string{
	"1":      "One",
	"2":      "Two",
	"3":      "Three",
	"4":      "Four",
	"Studio": "Studio",
}

var timelineEncodeTable = map[string]string{
	"0-3m":      "T0_3m",
	"3-6m":      "T3_6m",
	">6m":       "GT6m",
	"Exploring": "Exploring",
}

var (
	bhkDecodeTable      = invert(bhkEncodeTable)
	timelineDecodeTable = invert(timelineEncodeTable)
)

func invert(table map[string]string) map[string]string {
	inverted := make(map[string]string, len(table))
	for k, v := range table {
		inverted[v] = k
	}
	return inverted
}

// EncodeBHK maps a UI bhk token ("1".."4", "Studio") to its storage token.
// Returns "" for tokens outside the table.
func EncodeBHK(ui string) string { return bhkEncodeTable[ui] }

// DecodeBHK is the exact inverse of EncodeBHK.
func DecodeBHK(stored string) string { return bhkDecodeTable[stored] }

// EncodeTimeline maps a UI timeline token ("0-3m", "3-6m", ">6m",
// "Exploring") to its storage token. Returns "" for tokens outside the table.
func EncodeTimeline(ui string) string { return timelineEncodeTable[ui] }

// DecodeTimeline is the exact inverse of EncodeTimeline.
func DecodeTimeline(stored string) string { return timelineDecodeTable[stored] }

// EncodeSource remaps "Walk-in" to "Walk_in" and is the identity otherwise.
func EncodeSource(ui string) string {
	if ui == "Walk-in" {
		return "Walk_in"
	}
	return ui
}

// DecodeSource is the exact inverse of EncodeSource.
func DecodeSource(stored string) string {
	if stored == "Walk_in" {
		return "Walk-in"
	}
	return stored
}
