package fieldcodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtrack/internal/fieldcodec"
	"mtrack/internal/service"
)

var bookFields = []service.Field{
	{ID: 1, Name: "Title", Type: service.FieldText},
	{ID: 2, Name: "Notes", Type: service.FieldNotes},
	{ID: 3, Name: "Pages", Type: service.FieldNumber},
	{ID: 4, Name: "Finished", Type: service.FieldDate},
	{ID: 5, Name: "Owned", Type: service.FieldBoolean},
	{ID: 6, Name: "Status", Type: service.FieldSelect, Options: []string{"Read", "Reading", "Unread"}},
}

func TestFor_Widgets(t *testing.T) {
	want := map[string]fieldcodec.Widget{
		"Title":    fieldcodec.WidgetLine,
		"Notes":    fieldcodec.WidgetMultiline,
		"Pages":    fieldcodec.WidgetNumber,
		"Finished": fieldcodec.WidgetDate,
		"Owned":    fieldcodec.WidgetToggle,
		"Status":   fieldcodec.WidgetChoice,
	}
	for _, f := range bookFields {
		c, ok := fieldcodec.For(f)
		require.True(t, ok, f.Name)
		assert.Equal(t, want[f.Name], c.Widget, f.Name)
	}

	_, ok := fieldcodec.For(service.Field{Name: "Rating", Type: "Stars"})
	assert.False(t, ok, "unknown types have no codec")
}

func TestCoerce(t *testing.T) {
	codec := func(name string) fieldcodec.Codec {
		for _, f := range bookFields {
			if f.Name == name {
				c, _ := fieldcodec.For(f)
				return c
			}
		}
		t.Fatalf("no field %s", name)
		return fieldcodec.Codec{}
	}

	tests := []struct {
		field   string
		raw     string
		want    any
		wantErr bool
	}{
		{"Title", "  Dune ", "  Dune ", false},
		{"Notes", "line1\nline2", "line1\nline2", false},
		{"Pages", "412", "412", false},
		{"Pages", "3.5", "3.5", false},
		{"Pages", "", "", false},
		{"Pages", "many", nil, true},
		{"Finished", "2024-03-01", "2024-03-01", false},
		{"Finished", "03/01/2024", nil, true},
		{"Owned", "true", true, false},
		{"Owned", "yes", true, false},
		{"Owned", "no", false, false},
		{"Owned", "", false, false},
		{"Owned", "maybe", nil, true},
		{"Status", "Reading", "Reading", false},
		{"Status", "", "", false},
		{"Status", "reading", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.raw, func(t *testing.T) {
			got, err := codec(tt.field).Coerce(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, service.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	toggle, _ := fieldcodec.For(service.Field{Name: "Owned", Type: service.FieldBoolean})
	assert.Equal(t, "yes", toggle.Format(true))
	assert.Equal(t, "no", toggle.Format(false))
	assert.Equal(t, "yes", toggle.Format("true"))
	assert.Equal(t, "", toggle.Format(nil))

	number, _ := fieldcodec.For(service.Field{Name: "Pages", Type: service.FieldNumber})
	assert.Equal(t, "412", number.Format(float64(412)))
	assert.Equal(t, "412", number.Format("412"))
}

func TestBuildData_Create(t *testing.T) {
	data, err := fieldcodec.BuildData(bookFields, map[string]string{"Title": "Dune", "Owned": "yes"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Title":    "Dune",
		"Notes":    "",
		"Pages":    "",
		"Finished": "",
		"Owned":    true,
		"Status":   "",
	}, data)
}

func TestBuildData_EditKeepsOrphanKeys(t *testing.T) {
	base := map[string]any{"Title": "Dune", "Author": "Herbert", "Status": "Unread"}
	data, err := fieldcodec.BuildData(bookFields, map[string]string{"Status": "Read"}, base)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Title": "Dune", "Author": "Herbert", "Status": "Read"}, data)
	assert.Equal(t, "Unread", base["Status"], "base is not modified")
}

func TestBuildData_RejectsUnknownKeys(t *testing.T) {
	_, err := fieldcodec.BuildData(bookFields, map[string]string{"Author": "Herbert"}, nil)
	require.Error(t, err)
	assert.True(t, service.IsValidation(err))
}

func TestBuildData_SkipsUnknownTypes(t *testing.T) {
	fields := append([]service.Field{{ID: 9, Name: "Rating", Type: "Stars"}}, bookFields[0])
	data, err := fieldcodec.BuildData(fields, map[string]string{"Title": "Dune"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Title": "Dune"}, data)

	_, err = fieldcodec.BuildData(fields, map[string]string{"Rating": "5"}, nil)
	assert.Error(t, err)
}

func TestBuildData_CoercionErrorStopsWrite(t *testing.T) {
	_, err := fieldcodec.BuildData(bookFields, map[string]string{"Pages": "lots"}, nil)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Pages", ve.Field)
}

func TestRow_IgnoresOrphanKeys(t *testing.T) {
	// The "Author" field was deleted after the item was written.
	item := service.Item{ID: 1, Data: map[string]any{"Title": "Dune", "Author": "Herbert", "Owned": true}}
	fields := []service.Field{bookFields[0], bookFields[4]}

	assert.Equal(t, []string{"Title", "Owned"}, fieldcodec.Columns(fields))
	assert.Equal(t, []string{"Dune", "yes"}, fieldcodec.Row(fields, item))
	assert.Equal(t, "Herbert", item.Data["Author"], "orphaned data is kept")
}
