// Package export writes and reads document inventories. An inventory is a
// flat listing of a case's files with their derived document metadata, in
// either CSV or JSON, suitable for handing to opposing counsel or re-importing
// later.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/casedesk/go-casedesk/backend"
	"github.com/casedesk/go-casedesk/scanner"
	"github.com/cockroachdb/errors"
)

const (
	titleCell    = "Document Inventory"
	caseNoPrefix = "Case No. "
	folderPrefix = "Source Folder: "
)

// headers is the column order of every inventory, CSV and spreadsheet alike.
var headers = []string{
	"Date Rcvd",
	"Doc Year",
	"Doc Date Range",
	"Document Type",
	"Document Description",
	"File Name",
	"Folder Name",
	"Folder Path",
	"File Type",
	"Bates Stamp",
	"Notes",
}

// Row is one inventory line.
type Row struct {
	DateRcvd     string `json:"date_rcvd"`
	DocYear      int    `json:"doc_year"`
	DocDateRange string `json:"doc_date_range"`
	DocumentType string `json:"document_type"`
	Description  string `json:"document_description"`
	FileName     string `json:"file_name"`
	FolderName   string `json:"folder_name"`
	FolderPath   string `json:"folder_path"`
	FileType     string `json:"file_type"`
	BatesStamp   string `json:"bates_stamp"`
	Notes        string `json:"notes"`
}

// Metadata is the optional preamble above the inventory table.
type Metadata struct {
	CaseNumber string `json:"case_number,omitempty"`
	FolderPath string `json:"folder_path,omitempty"`
}

func (m Metadata) empty() bool {
	return m.CaseNumber == "" && m.FolderPath == ""
}

// BuildRows turns a file listing into inventory rows, deriving document type
// and description from each file name. notes holds the note bodies per file
// id; multiple notes collapse into one cell.
func BuildRows(files []backend.File, notes map[string][]string) []Row {
	rows := make([]Row, 0, len(files))
	for _, f := range files {
		meta := scanner.DeriveMeta(scanner.FileInfo{
			FileName:   f.FileName,
			FileType:   f.FileType,
			ModifiedAt: time.Unix(f.ModifiedAt, 0).UTC(),
		})
		year := yearOf(meta.DocDateRange)
		if year == 0 && f.ModifiedAt > 0 {
			year = meta.DocYear
		}
		folderName := ""
		if f.FolderPath != "" {
			folderName = path.Base(f.FolderPath)
		}
		dateRcvd := ""
		if f.CreatedAt > 0 {
			dateRcvd = time.Unix(f.CreatedAt, 0).UTC().Format("2006-01-02")
		}
		rows = append(rows, Row{
			DateRcvd:     dateRcvd,
			DocYear:      year,
			DocDateRange: meta.DocDateRange,
			DocumentType: meta.DocumentType,
			Description:  meta.Description,
			FileName:     f.FileName,
			FolderName:   folderName,
			FolderPath:   f.FolderPath,
			FileType:     f.FileType,
			Notes:        strings.Join(notes[f.ID], "; "),
		})
	}
	return rows
}

// yearOf pulls the four-digit year out of a date range like "Oct 2024".
// Two-digit forms like "Sep 25" are ambiguous and yield zero.
func yearOf(dateRange string) int {
	fields := strings.Fields(dateRange)
	if len(fields) == 0 {
		return 0
	}
	last := fields[len(fields)-1]
	if len(last) != 4 {
		return 0
	}
	year, err := strconv.Atoi(last)
	if err != nil {
		return 0
	}
	return year
}

// WriteCSV writes the inventory to w. When metadata is present it occupies a
// title row, an optional source-folder row and a blank spacer row before the
// header, mirroring the spreadsheet layout.
func WriteCSV(w io.Writer, rows []Row, meta Metadata) error {
	cw := csv.NewWriter(w)

	pad := func(cells ...string) []string {
		out := make([]string, len(headers))
		copy(out, cells)
		return out
	}

	if !meta.empty() {
		if meta.CaseNumber != "" {
			if err := cw.Write(pad(titleCell, caseNoPrefix+meta.CaseNumber)); err != nil {
				return errors.Wrap(err, "writing title row")
			}
		}
		if meta.FolderPath != "" {
			if err := cw.Write(pad(folderPrefix + meta.FolderPath)); err != nil {
				return errors.Wrap(err, "writing folder row")
			}
		}
		if err := cw.Write(pad()); err != nil {
			return errors.Wrap(err, "writing spacer row")
		}
	}

	if err := cw.Write(headers); err != nil {
		return errors.Wrap(err, "writing header row")
	}
	for _, r := range rows {
		record := []string{
			r.DateRcvd,
			strconv.Itoa(r.DocYear),
			r.DocDateRange,
			r.DocumentType,
			r.Description,
			r.FileName,
			r.FolderName,
			r.FolderPath,
			r.FileType,
			r.BatesStamp,
			r.Notes,
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "writing inventory row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing inventory")
}

// ReadCSV parses an inventory written by WriteCSV. It tolerates a missing
// preamble, columns in any order, and extra columns it does not know.
func ReadCSV(r io.Reader) ([]Row, Metadata, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, Metadata{}, errors.Wrap(err, "reading inventory")
	}

	var meta Metadata
	start := 0
preamble:
	for start < len(records) {
		record := records[start]
		switch {
		case len(record) > 0 && record[0] == titleCell:
			if len(record) > 1 && strings.HasPrefix(record[1], caseNoPrefix) {
				meta.CaseNumber = strings.TrimSpace(strings.TrimPrefix(record[1], caseNoPrefix))
			}
		case len(record) > 0 && strings.HasPrefix(record[0], folderPrefix):
			meta.FolderPath = strings.TrimSpace(strings.TrimPrefix(record[0], folderPrefix))
		case blankRecord(record):
		default:
			// First row that is neither preamble nor blank is the header.
			break preamble
		}
		start++
	}
	if start >= len(records) {
		return nil, meta, errors.New("inventory has no header row")
	}

	columns := map[string]int{}
	for i, name := range records[start] {
		columns[strings.TrimSpace(name)] = i
	}

	rows := []Row{}
	for _, record := range records[start+1:] {
		if blankRecord(record) {
			continue
		}
		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		year, _ := strconv.Atoi(field("Doc Year"))
		rows = append(rows, Row{
			DateRcvd:     field("Date Rcvd"),
			DocYear:      year,
			DocDateRange: field("Doc Date Range"),
			DocumentType: field("Document Type"),
			Description:  field("Document Description"),
			FileName:     field("File Name"),
			FolderName:   field("Folder Name"),
			FolderPath:   field("Folder Path"),
			FileType:     field("File Type"),
			BatesStamp:   field("Bates Stamp"),
			Notes:        field("Notes"),
		})
	}
	return rows, meta, nil
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// document is the JSON envelope around an inventory.
type document struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Items    []Row     `json:"items"`
}

// WriteJSON writes the inventory to w as an indented JSON document.
func WriteJSON(w io.Writer, rows []Row, meta Metadata) error {
	doc := document{Items: rows}
	if !meta.empty() {
		doc.Metadata = &meta
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "encoding inventory")
}

// ReadJSON parses an inventory written by WriteJSON. Bare arrays of rows,
// the format before the metadata envelope existed, still parse.
func ReadJSON(r io.Reader) ([]Row, Metadata, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, Metadata{}, errors.Wrap(err, "reading inventory")
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err == nil && (doc.Metadata != nil || doc.Items != nil) {
		meta := Metadata{}
		if doc.Metadata != nil {
			meta = *doc.Metadata
		}
		return doc.Items, meta, nil
	}

	var rows []Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, Metadata{}, errors.Wrap(err, "decoding inventory")
	}
	return rows, Metadata{}, nil
}
