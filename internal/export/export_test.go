package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestWriteTasks(t *testing.T) {
	start, err := domain.ParseDate("2024-03-01")
	require.NoError(t, err)
	end, err := domain.ParseDate("2024-03-04")
	require.NoError(t, err)

	desc := "draft and send"
	img := "images/a.png"
	created := time.Date(2024, 2, 28, 9, 30, 0, 0, time.UTC)

	tasks := []*domain.Task{
		{ID: 1, Name: "Report", Description: &desc, StartDate: start, EndDate: end, CategoryID: 2, Image: &img, CreatedAt: created, UpdatedAt: created},
		{ID: 2, Name: "Call", StartDate: start, EndDate: start, CategoryID: 3, CreatedAt: created, UpdatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTasks(&buf, tasks))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, Headings, rows[0])
	assert.Equal(t, []string{
		"1", "Report", "draft and send", "2024-03-01", "2024-03-04", "2",
		"images/a.png", "2024-02-28 09:30:00", "2024-02-28 09:30:00",
	}, rows[1])
	assert.Equal(t, "Call", rows[2][1])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "3", rows[2][5])
}

func TestWriteTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTasks(&buf, nil))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"ID", "Name", "Description", "Start Date", "End Date",
		"Category Id", "Image", "Created At", "Updated At",
	}, rows[0])
}
