package payment

import (
	"fmt"
	"strings"
)

const (
	statementDescriptorMaxLength = 22
	statementDescriptorMinLength = 5
)

// statementIllegalChars are rejected by card networks in statement descriptors.
const statementIllegalChars = `<>'"*`

// SanitizeStatementDescriptor derives a valid statement descriptor from raw
// input: truncated to 22 characters, illegal characters replaced with '-',
// right-padded with '-' to a 5-character minimum. Empty input yields "-----".
// The result length is always max(5, min(22, len(input))).
func SanitizeStatementDescriptor(raw string) string {
	runes := []rune(raw)
	if len(runes) > statementDescriptorMaxLength {
		runes = runes[:statementDescriptorMaxLength]
	}

	var b strings.Builder
	for _, r := range runes {
		if strings.ContainsRune(statementIllegalChars, r) {
			b.WriteRune('-')
		} else {
			b.WriteRune(r)
		}
	}

	s := b.String()
	if pad := statementDescriptorMinLength - len([]rune(s)); pad > 0 {
		s += strings.Repeat("-", pad)
	}
	return s
}

// currencySymbols covers the currencies in-person payments support. Anything
// else falls back to the uppercased code as prefix.
var currencySymbols = map[string]string{
	"usd": "$",
	"cad": "$",
	"gbp": "£",
	"eur": "€",
}

// FormatAmount renders a minor-unit amount as a display label, e.g.
// 1072 "gbp" -> "£10.72".
func FormatAmount(amount int64, currency string) string {
	cur := strings.ToLower(currency)
	if sym, ok := currencySymbols[cur]; ok {
		return fmt.Sprintf("%s%d.%02d", sym, amount/100, amount%100)
	}
	return fmt.Sprintf("%s %d.%02d", strings.ToUpper(currency), amount/100, amount%100)
}
