package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agendaDataset() Dataset {
	return Dataset{
		Title:    "Agenda",
		Subtitle: "2024-01-01 to 2024-01-07",
		Columns: []Column{
			{Key: "start", Label: "Start", Weight: 2},
			{Key: "title", Label: "Title", Weight: 4},
			{Key: "conflict", Label: "Conflict"},
		},
		Rows: []map[string]string{
			{"start": "2024-01-02 10:00", "title": "Hearing, Smith v Jones", "conflict": "potential"},
			{"start": "2024-01-03 09:00", "title": "Client meeting"},
		},
	}
}

func TestCSVExporterRendersLabelsAndRows(t *testing.T) {
	out, err := NewCSVExporter().Render(agendaDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Start,Title,Conflict", lines[0])
	assert.Equal(t, `2024-01-02 10:00,"Hearing, Smith v Jones",potential`, lines[1])
	assert.Equal(t, "2024-01-03 09:00,Client meeting,", lines[2])
}

func TestExportersRequireColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(agendaDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(agendaDataset().Columns)
	sum := 0.0
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, pageWidthLandscape, sum, 0.001)
	assert.InDelta(t, widths[0]*2, widths[1], 0.001)
}
