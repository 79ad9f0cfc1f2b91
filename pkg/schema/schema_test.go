package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	s := New("id", "name", "salary")

	require.Len(t, s.Fields, 3)
	assert.Equal(t, []string{"id", "name", "salary"}, s.Names())
	assert.Equal(t, Field{Name: "id", Type: Int64}, s.Fields[0])
	assert.Equal(t, Field{Name: "name", Type: VWString, Size: 100}, s.Fields[1])
	assert.Equal(t, Field{Name: "salary", Type: String, Size: 100}, s.Fields[2])
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		skipHeader bool
		want       []Row
		wantErr    string
	}{
		{
			name: "two records",
			body: "1,Alice,50000\n2,Bob,60000",
			want: []Row{
				{IntValue(1), TextValue(VWString, "Alice"), TextValue(String, "50000")},
				{IntValue(2), TextValue(VWString, "Bob"), TextValue(String, "60000")},
			},
		},
		{
			name:       "header skipped",
			body:       "Employee Id,Employee Name,Salary\n7,Carol,1\n",
			skipHeader: true,
			want: []Row{
				{IntValue(7), TextValue(VWString, "Carol"), TextValue(String, "1")},
			},
		},
		{
			name: "byte order mark",
			body: "\ufeff1,Alice,50000\n2,Bob,60000",
			want: []Row{
				{IntValue(1), TextValue(VWString, "Alice"), TextValue(String, "50000")},
				{IntValue(2), TextValue(VWString, "Bob"), TextValue(String, "60000")},
			},
		},
		{
			name:       "byte order mark before header",
			body:       "\ufeffEmployee Id,Employee Name,Salary\r\n7,Carol,1\r\n",
			skipHeader: true,
			want: []Row{
				{IntValue(7), TextValue(VWString, "Carol"), TextValue(String, "1")},
			},
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
		{
			name:    "wrong column count",
			body:    "1,Alice\n",
			wantErr: "wrong number of fields",
		},
		{
			name:    "non-numeric id",
			body:    "x,Alice,1\n",
			wantErr: `parsing "x" as int64`,
		},
		{
			name:    "header not skipped",
			body:    "Employee Id,Employee Name,Salary\n",
			wantErr: "line 1",
		},
		{
			name:    "name too long",
			body:    "1," + strings.Repeat("a", 101) + ",1\n",
			wantErr: "field exceeds maximum length",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseCSV(strings.NewReader(test.body), Default(), test.skipHeader)

			if test.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedCSV)
				assert.Contains(t, err.Error(), test.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestParseCSV_MultibyteWithinLimit(t *testing.T) {
	t.Parallel()

	name := strings.Repeat("é", 100)
	rows, err := ParseCSV(strings.NewReader("1,"+name+",1\n"), Default(), false)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, name, rows[0][1].Str)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := Default()

	assert.NoError(t, s.Validate(Row{IntValue(1), TextValue(VWString, "a"), TextValue(String, "b")}))
	assert.Error(t, s.Validate(Row{IntValue(1)}))
	assert.Error(t, s.Validate(Row{TextValue(String, "1"), TextValue(VWString, "a"), TextValue(String, "b")}))
}

func TestRow_Strings(t *testing.T) {
	t.Parallel()

	r := Row{IntValue(42), TextValue(VWString, "Alice"), TextValue(String, "50000")}
	assert.Equal(t, []string{"42", "Alice", "50000"}, r.Strings())
	assert.Equal(t, int64(42), r[0].Interface())
}
