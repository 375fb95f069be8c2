package portfolio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := `"Techstack","Links"
"React, Node.js, MongoDB","https://example.com/react-portfolio"
Python,ML,https://example.com/ml
"Python, ML","https://example.com/ml-2"
`

	entries, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"React", "Node.js", "MongoDB"}, entries[0].Skills)
	assert.Equal(t, "https://example.com/react-portfolio", entries[0].ReferenceURL)
	assert.Equal(t, []string{"Python", "ML"}, entries[1].Skills)
	assert.Equal(t, "https://example.com/ml", entries[1].ReferenceURL)

	ids := map[string]bool{}
	for _, entry := range entries {
		_, err := uuid.Parse(entry.ID)
		require.NoError(t, err)
		ids[entry.ID] = true
	}
	assert.Len(t, ids, 3, "entries with equal skill sets stay distinct")
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{
			name:    "single column",
			input:   "Links\nhttps://example.com\n",
			message: "portfolio line 2",
		},
		{
			name:    "missing url",
			input:   "Techstack,Links\nGo,\n",
			message: "ReferenceURL",
		},
		{
			name:    "no skills",
			input:   "Techstack,Links\n\" , \",https://example.com\n",
			message: "Skills",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseCSVEmpty(t *testing.T) {
	entries, err := ParseCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = ParseCSV(strings.NewReader("Techstack,Links\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.csv")
	require.NoError(t, os.WriteFile(path, []byte("Techstack,Links\nGo,https://example.com/go\n"), 0o600))

	entries, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"Go"}, entries[0].Skills)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestCanonicalSkillsIsOrderInsensitive(t *testing.T) {
	a := Entry{Skills: []string{"ML", "python", " Go "}}
	b := Entry{Skills: []string{"Go", "ML", "python", ""}}

	assert.Equal(t, "Go, ML, python", a.CanonicalSkills())
	assert.Equal(t, a.CanonicalSkills(), b.CanonicalSkills())
}
