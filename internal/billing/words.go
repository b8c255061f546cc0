package billing

import "strings"

type Numbering string

const (
	NumberingInternational Numbering = "international"
	NumberingIndian        Numbering = "indian"
)

// WordsOptions controls AmountInWords. Zero value spells "Cents" with international grouping.
type WordsOptions struct {
	MinorUnit string
	Numbering Numbering
}

var (
	smallNumbers = [...]string{
		"Zero", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = [...]string{
		"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
	}
)

type scale struct {
	value uint64
	name  string
}

var internationalScales = []scale{
	{1_000_000_000_000_000, "Quadrillion"},
	{1_000_000_000_000, "Trillion"},
	{1_000_000_000, "Billion"},
	{1_000_000, "Million"},
	{1_000, "Thousand"},
}

var indianScales = []scale{
	{10_000_000, "Crore"},
	{100_000, "Lakh"},
	{1_000, "Thousand"},
}

// AmountInWords spells an amount, e.g. 1234.50 -> "One Thousand Two Hundred Thirty Four
// and Fifty Cents". Works on minor units so no precision is lost.
func AmountInWords(m Money, opts WordsOptions) string {
	unit := opts.MinorUnit
	if unit == "" {
		unit = "Cents"
	}

	var b strings.Builder
	if m < 0 {
		b.WriteString("Negative ")
	}
	// -MinInt64 overflows int64 but not uint64.
	abs := uint64(m)
	if m < 0 {
		abs = uint64(-(m + 1)) + 1
	}
	major, minor := abs/100, abs%100

	b.WriteString(integerWords(major, opts.Numbering))
	if minor > 0 {
		b.WriteString(" and ")
		b.WriteString(integerWords(minor, opts.Numbering))
		b.WriteString(" ")
		b.WriteString(unit)
	}
	return b.String()
}

func integerWords(n uint64, numbering Numbering) string {
	if n == 0 {
		return smallNumbers[0]
	}
	scales := internationalScales
	if numbering == NumberingIndian {
		scales = indianScales
	}
	return strings.Join(groupWords(n, scales), " ")
}

func groupWords(n uint64, scales []scale) []string {
	var words []string
	for _, s := range scales {
		if n >= s.value {
			// Indian grouping repeats Crore for large values ("Ten Thousand Crore").
			words = append(words, groupWords(n/s.value, scales)...)
			words = append(words, s.name)
			n %= s.value
		}
	}
	if n > 0 {
		words = append(words, belowThousand(n)...)
	}
	return words
}

func belowThousand(n uint64) []string {
	var words []string
	if n >= 100 {
		words = append(words, smallNumbers[n/100], "Hundred")
		n %= 100
	}
	switch {
	case n == 0:
	case n < 20:
		words = append(words, smallNumbers[n])
	default:
		words = append(words, tens[n/10])
		if n%10 != 0 {
			words = append(words, smallNumbers[n%10])
		}
	}
	return words
}
