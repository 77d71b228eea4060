package pdf

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const displayDateLayout = "02 Jan 2006"

var printer = message.NewPrinter(language.English)

// Amount formats a whole currency amount with thousands separators.
func Amount(v int64) string {
	return printer.Sprintf("%d", v)
}

// Currency formats a currency value with thousands separators and two
// decimals. Nil renders as a dash.
func Currency(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f", *v)
}

func Percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.2f%%", *v)
}

func DisplayDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(displayDateLayout)
}

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// FileName builds the download name NeedAnalysis_<Name>_<YYYY-MM-DD>.pdf.
func FileName(customerName string, date time.Time) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(customerName), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "Customer"
	}

	return "NeedAnalysis_" + name + "_" + date.Format("2006-01-02") + ".pdf"
}
