package analysis

import "strconv"

// BandForChannel names the frequency band of a channel number.
func BandForChannel(channel *int) string {
	if channel == nil {
		return "?"
	}
	switch ch := *channel; {
	case ch >= 1 && ch <= 14:
		return "2.4 GHz"
	case ch >= 32 && ch <= 177:
		return "5 GHz"
	default:
		return "ch " + strconv.Itoa(ch)
	}
}
