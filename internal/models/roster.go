package models

// RosterFormat enumerates supported roster export formats.
type RosterFormat string

const (
	RosterFormatCSV RosterFormat = "csv"
	RosterFormatPDF RosterFormat = "pdf"
)

// Valid reports whether f is a supported format.
func (f RosterFormat) Valid() bool {
	switch f {
	case RosterFormatCSV, RosterFormatPDF:
		return true
	default:
		return false
	}
}
