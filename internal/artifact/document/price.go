package document

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is the ISO 4217 code prices are shown in.
const DefaultCurrency = "INR"

// currencyPrefix returns the text placed before a price: the narrow currency
// symbol when the core PDF fonts can draw it, otherwise the ISO code and a
// space.
func currencyPrefix(code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", code, err)
	}
	symbol := message.NewPrinter(language.English).Sprint(currency.NarrowSymbol(unit))
	if symbol == "" || !representable(symbol) {
		return unit.String() + " ", nil
	}
	return symbol, nil
}

func representable(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
