package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// StudyRow is one study read from a data file: a label, an effect size,
// and its sampling variance
type StudyRow struct {
	Label    string
	Effect   float64
	Variance float64
}

// Column header aliases accepted when locating study data
var (
	labelHeaders    = []string{"study", "label", "trial"}
	effectHeaders   = []string{"effect", "estimate", "yi"}
	varianceHeaders = []string{"variance", "vi", "var"}
)

// StudyReader handles reading study-level data from Excel and CSV files
type StudyReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewStudyReader creates a new reader that handles both Excel and CSV files
func NewStudyReader(filePath string) *StudyReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &StudyReader{filePath: filePath, fileType: fileType}
}

// ReadStudies reads per-study effect data from the file
func (r *StudyReader) ReadStudies() ([]StudyRow, error) {
	log.Printf("[StudyReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSV()
	case "xlsx":
		return r.readExcel()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcel reads study data from Sheet1
func (r *StudyReader) readExcel() ([]StudyRow, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	log.Printf("[StudyReader] Excel file read in %.2fms (%d rows)",
		float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return parseRows(rows)
}

// readCSV reads study data from a CSV file
func (r *StudyReader) readCSV() ([]StudyRow, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	startTime := time.Now()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[StudyReader] CSV file read in %.2fms (%d rows)",
		float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return parseRows(rows)
}

// parseRows converts raw string rows into study rows
func parseRows(rows [][]string) ([]StudyRow, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have at least a header row and one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	labelCol, err := findColumn(headers, labelHeaders)
	if err != nil {
		return nil, err
	}
	effectCol, err := findColumn(headers, effectHeaders)
	if err != nil {
		return nil, err
	}
	varianceCol, err := findColumn(headers, varianceHeaders)
	if err != nil {
		return nil, err
	}

	studies := make([]StudyRow, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		label := cellAt(row, labelCol)
		if label == "" {
			return nil, fmt.Errorf("row %d: empty study label", i+1)
		}
		effect, err := parseFloat(cellAt(row, effectCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad effect value: %w", i+1, err)
		}
		variance, err := parseFloat(cellAt(row, varianceCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad variance value: %w", i+1, err)
		}
		studies = append(studies, StudyRow{Label: label, Effect: effect, Variance: variance})
	}

	log.Printf("[StudyReader] File processed (%d studies)", len(studies))
	return studies, nil
}

// findColumn locates the first header matching any accepted alias
func findColumn(headers, aliases []string) (int, error) {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("no column named any of %v", aliases)
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
