// Package portfolio loads the curated portfolio and retrieves entries relevant to a skill list.
package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Entry is a single portfolio item: a set of skills and the reference showcasing them.
// Identity is the ID, so equal skill sets with different references are distinct entries.
type Entry struct {
	ID           string   `validate:"required"`
	Skills       []string `validate:"required,min=1,dive,required"`
	ReferenceURL string   `validate:"required"`
}

// CanonicalSkills renders the skill set in an order-insensitive form used for embedding.
func (e Entry) CanonicalSkills() string {
	skills := make([]string, 0, len(e.Skills))
	for _, skill := range e.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	sort.SliceStable(skills, func(i, j int) bool {
		return strings.ToLower(skills[i]) < strings.ToLower(skills[j])
	})

	return strings.Join(skills, ", ")
}

var validate = validator.New()

// ReadCSV reads portfolio entries from the file at path.
func ReadCSV(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio: %w", err)
	}
	defer file.Close()

	return ParseCSV(file)
}

// ParseCSV parses a table whose first row is a header, whose last column is the
// reference URL and whose other columns are skill tokens. Blank skill cells are dropped.
func ParseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read portfolio header: %w", err)
	}

	var entries []Entry
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read portfolio row: %w", err)
		}

		line, _ := reader.FieldPos(0)

		if len(row) < 2 {
			return nil, fmt.Errorf("portfolio line %d: expected skills and a reference url, got %d column(s)", line, len(row))
		}

		entry := Entry{
			ID:           uuid.NewString(),
			Skills:       splitSkills(row[:len(row)-1]),
			ReferenceURL: strings.TrimSpace(row[len(row)-1]),
		}

		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("portfolio line %d: %w", line, err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// splitSkills accepts both one skill per cell and comma separated skills within a cell.
func splitSkills(cells []string) []string {
	var skills []string
	for _, cell := range cells {
		for _, skill := range strings.Split(cell, ",") {
			if skill = strings.TrimSpace(skill); skill != "" {
				skills = append(skills, skill)
			}
		}
	}
	return skills
}
