package wkrd

import "strings"

// HAlign is the horizontal alignment of a cell.
type HAlign uint8

const (
	AlignDefault HAlign = iota
	AlignLeft
	AlignRight
	AlignCenter
	AlignFill
)

// VAlign is the vertical alignment of a cell.
type VAlign uint8

const (
	VAlignDefault VAlign = iota
	VAlignTop
	VAlignMiddle
	VAlignBottom
)

// Borders is a bit set of the drawn cell edges.
type Borders uint8

const (
	BorderLeft Borders = 1 << iota
	BorderRight
	BorderTop
	BorderBottom
)

// FormatKind is the numeric display kind.
type FormatKind uint8

const (
	FormatGeneral FormatKind = iota
	FormatFixed
	FormatScientific
	FormatCurrency
	FormatPercent
	FormatComma
	FormatPlusMinus
	FormatDate
	FormatTime
	FormatText
	FormatHidden
)

// NumberFormat is how a numeric value is displayed. Variant selects the
// date or time layout for FormatDate and FormatTime.
type NumberFormat struct {
	Kind     FormatKind
	Decimals uint8
	Variant  uint8
}

// Date and time variants.
const (
	DateDMY uint8 = iota
	DateDM
	DateMY
	DateIntl
	DateIntlShort
)

const (
	TimeHMS uint8 = iota
	TimeHM
	TimeIntl
	TimeIntlShort
)

// IsDate reports whether the format displays a serial day number.
func (f NumberFormat) IsDate() bool {
	return f.Kind == FormatDate || f.Kind == FormatTime
}

// Layout returns a time.Format layout for date and time formats, or "".
func (f NumberFormat) Layout() string {
	switch f.Kind {
	case FormatDate:
		switch f.Variant {
		case DateDM:
			return "2-Jan"
		case DateMY:
			return "Jan-06"
		case DateIntl:
			return "01/02/06"
		case DateIntlShort:
			return "01/02"
		default:
			return "2-Jan-06"
		}
	case FormatTime:
		switch f.Variant {
		case TimeHM:
			return "03:04 PM"
		case TimeIntl:
			return "15:04:05"
		case TimeIntlShort:
			return "15:04"
		default:
			return "03:04:05 PM"
		}
	}
	return ""
}

// Code returns a spreadsheet number format code for the format.
func (f NumberFormat) Code() string {
	dec := ""
	if f.Decimals > 0 {
		dec = "." + strings.Repeat("0", int(f.Decimals))
	}
	switch f.Kind {
	case FormatFixed:
		return "0" + dec
	case FormatScientific:
		return "0" + dec + "E+00"
	case FormatCurrency:
		return "$#,##0" + dec
	case FormatPercent:
		return "0" + dec + "%"
	case FormatComma:
		return "#,##0" + dec
	case FormatDate:
		switch f.Variant {
		case DateDM:
			return "d-mmm"
		case DateMY:
			return "mmm-yy"
		case DateIntl:
			return "mm/dd/yy"
		case DateIntlShort:
			return "mm/dd"
		default:
			return "d-mmm-yy"
		}
	case FormatTime:
		switch f.Variant {
		case TimeHM:
			return "h:mm AM/PM"
		case TimeIntl:
			return "hh:mm:ss"
		case TimeIntlShort:
			return "hh:mm"
		default:
			return "h:mm:ss AM/PM"
		}
	case FormatText:
		return "@"
	case FormatHidden:
		return ";;;"
	}
	return "General"
}

// Style is the display attributes of a cell. Styles are compared by value
// and interned per document; id 0 is DefaultStyle.
type Style struct {
	HAlign    HAlign
	VAlign    VAlign
	Borders   Borders
	Font      int
	Format    NumberFormat
	Protected bool
}

// DefaultStyle is what style id 0 resolves to: general number format,
// default alignment, no borders, font 0, unprotected.
var DefaultStyle = Style{}

// decodeFormatByte decodes the one-byte Lotus cell format.
func decodeFormatByte(b uint8) (NumberFormat, bool) {
	protected := b&0x80 != 0
	low := b & 0x0F
	switch (b >> 4) & 0x07 {
	case 0:
		return NumberFormat{Kind: FormatFixed, Decimals: low}, protected
	case 1:
		return NumberFormat{Kind: FormatScientific, Decimals: low}, protected
	case 2:
		return NumberFormat{Kind: FormatCurrency, Decimals: low}, protected
	case 3:
		return NumberFormat{Kind: FormatPercent, Decimals: low}, protected
	case 4:
		return NumberFormat{Kind: FormatComma, Decimals: low}, protected
	case 7:
		switch low {
		case 0:
			return NumberFormat{Kind: FormatPlusMinus}, protected
		case 2, 3, 4:
			return NumberFormat{Kind: FormatDate, Variant: low - 2}, protected
		case 5:
			return NumberFormat{Kind: FormatText}, protected
		case 6:
			return NumberFormat{Kind: FormatHidden}, protected
		case 7, 8:
			return NumberFormat{Kind: FormatTime, Variant: low - 7}, protected
		case 9, 10:
			return NumberFormat{Kind: FormatDate, Variant: DateIntl + low - 9}, protected
		case 11, 12:
			return NumberFormat{Kind: FormatTime, Variant: TimeIntl + low - 11}, protected
		}
	}
	return NumberFormat{}, protected
}

// labelAlignment maps a label prefix character to an alignment. ok is false
// when c is not a prefix character.
func labelAlignment(c byte) (HAlign, bool) {
	switch c {
	case '\'', '|':
		return AlignLeft, true
	case '"':
		return AlignRight, true
	case '^':
		return AlignCenter, true
	case '\\':
		return AlignFill, true
	}
	return AlignDefault, false
}

func decodeHAlign(b uint8) HAlign {
	if b > uint8(AlignFill) {
		return AlignDefault
	}
	return HAlign(b)
}

func decodeVAlign(b uint8) VAlign {
	if b > uint8(VAlignBottom) {
		return VAlignDefault
	}
	return VAlign(b)
}
