package scanner

import (
	"fmt"
	"strings"
	"unicode"
)

// DocumentMeta is derived from a file's name and type at ingestion time and
// stored alongside the file record.
type DocumentMeta struct {
	DocumentType string `msgpack:"document_type" json:"document_type"`
	Description  string `msgpack:"description" json:"description"`
	DocDateRange string `msgpack:"doc_date_range" json:"doc_date_range,omitempty"`
	DocYear      int    `msgpack:"doc_year" json:"doc_year"`
}

var documentTypes = []struct {
	needle  string
	docType string
}{
	{"bank_statement", "Bank Statement"},
	{"bank-statement", "Bank Statement"},
	{"credit_card_statement", "Credit Card Statement"},
	{"credit-card-statement", "Credit Card Statement"},
	{"crypto_statement", "Crypto Statement"},
	{"crypto-statement", "Crypto Statement"},
	{"retirement_statement", "Retirement Statement"},
	{"retirement-statement", "Retirement Statement"},
	{"discovery_document", "Discovery Request"},
	{"discovery-document", "Discovery Request"},
}

// DeriveDocumentType classifies a file by well-known name patterns,
// defaulting to the generic "Document".
func DeriveDocumentType(fileName string) string {
	lower := strings.ToLower(fileName)
	for _, dt := range documentTypes {
		if strings.Contains(lower, dt.needle) {
			return dt.docType
		}
	}
	return "Document"
}

// DeriveMeta builds the document metadata for a scanned file.
func DeriveMeta(f FileInfo) DocumentMeta {
	docType := DeriveDocumentType(f.FileName)
	return DocumentMeta{
		DocumentType: docType,
		Description:  describe(f.FileName, docType, f.FileType),
		DocDateRange: extractMonthYear(f.FileName),
		DocYear:      f.ModifiedAt.Year(),
	}
}

func describe(fileName, docType, fileType string) string {
	lower := strings.ToLower(fileName)

	var prefix string
	if strings.Contains(lower, "joint") {
		prefix = "Joint "
	}

	expanded := docType
	if docType == "Retirement Statement" {
		expanded = "Retirement Account Statement"
	}

	var suffix string
	switch fileType {
	case "CSV":
		suffix = "_CSV"
	case "PDF":
		suffix = " PDF"
	}

	if monthYear := extractMonthYear(fileName); monthYear != "" {
		return fmt.Sprintf("%s%s %s%s", prefix, expanded, monthYear, suffix)
	}
	return prefix + expanded + suffix
}

var months = []struct{ lower, short string }{
	{"jan", "Jan"}, {"feb", "Feb"}, {"mar", "Mar"},
	{"apr", "Apr"}, {"may", "May"}, {"jun", "Jun"},
	{"jul", "Jul"}, {"aug", "Aug"}, {"sep", "Sep"},
	{"oct", "Oct"}, {"nov", "Nov"}, {"dec", "Dec"},
}

// extractMonthYear finds patterns like "Sep 25", "Sep25" or "September 2025"
// in a file name and returns them normalized ("Sep 25"). Returns "" when no
// month/year pair is present.
func extractMonthYear(fileName string) string {
	lower := strings.ToLower(fileName)
	for _, m := range months {
		pos := strings.Index(lower, m.lower)
		if pos < 0 {
			continue
		}
		rest := lower[pos+len(m.lower):]
		rest = strings.TrimLeftFunc(rest, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		// Skip the remainder of a spelled-out month name.
		rest = strings.TrimLeftFunc(rest, unicode.IsLetter)
		rest = strings.TrimLeftFunc(rest, func(r rune) bool {
			return !unicode.IsDigit(r)
		})
		var year strings.Builder
		for _, r := range rest {
			if !unicode.IsDigit(r) {
				break
			}
			year.WriteRune(r)
		}
		if year.Len() == 2 || year.Len() == 4 {
			return m.short + " " + year.String()
		}
	}
	return ""
}
