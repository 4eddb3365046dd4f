// Package qafile reads question tables and writes answer tables. Questions
// arrive as CSV or Excel with a Field column (the article section the
// question belongs to) and a Question column; answers are written with the
// contextualized question, the answer and the top source passage. A failed
// question is written as an explicit error entry, distinguishable from the
// engine's fallback answer.
package qafile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Question is one row of the question table.
type Question struct {
	Field    string
	Question string
}

// Answer is one row of the answers table.
type Answer struct {
	ArticleID              string
	Field                  string
	Question               string
	ContextualizedQuestion string
	Answer                 string
	SourcePassage          string
	Error                  string
}

var answerHeader = []string{"ArticleID", "Field", "Question", "ContextualizedQuestion", "Answer", "SourcePassage", "Error"}

// ReadQuestions loads the question table from a .csv or .xlsx file. The
// first row is the header; rows with an empty question are skipped.
func ReadQuestions(path string) ([]Question, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXlsx(path)
	default:
		return nil, fmt.Errorf("unsupported question table format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("question table %s is empty", path)
	}

	var questions []Question
	for _, row := range rows[1:] {
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		questions = append(questions, Question{
			Field:    strings.TrimSpace(row[0]),
			Question: strings.TrimSpace(row[1]),
		})
	}
	return questions, nil
}

// WriteAnswers writes the answers table to a .csv or .xlsx file, one row per
// question in input order.
func WriteAnswers(path string, answers []Answer) error {
	rows := make([][]string, 0, len(answers)+1)
	rows = append(rows, answerHeader)
	for _, a := range answers {
		rows = append(rows, []string{
			a.ArticleID, a.Field, a.Question, a.ContextualizedQuestion, a.Answer, a.SourcePassage, a.Error,
		})
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSV(path, rows)
	case ".xlsx":
		return writeXlsx(path, rows)
	default:
		return fmt.Errorf("unsupported answers table format: %s", filepath.Ext(path))
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	writer.Flush()
	return writer.Error()
}

func readXlsx(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func writeXlsx(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
