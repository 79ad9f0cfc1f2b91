package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(op Operation) OperationConfig {
	return OperationConfig{
		AccessToken:     "sl.secret-token",
		Operation:       op,
		RemoteFilePath:  "/data/employees.csv",
		UploadLocalPath: "/Apps/Test/new.xlsx",
	}.WithDefaults()
}

func TestParseOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Operation
		wantErr bool
	}{
		{"Download", Download, false},
		{"listfolder", ListFolder, false},
		{"UPLOAD", Upload, false},
		{"Delete", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		test := test
		t.Run(test.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOperation(test.in)
			if test.wantErr {
				require.ErrorIs(t, err, ErrUnknownOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(c *OperationConfig)
		wantField string
	}{
		{name: "valid download", mutate: func(c *OperationConfig) {}},
		{name: "valid list folder", mutate: func(c *OperationConfig) { c.Operation = ListFolder }},
		{name: "valid upload", mutate: func(c *OperationConfig) { c.Operation = Upload }},
		{
			name:      "missing token",
			mutate:    func(c *OperationConfig) { c.AccessToken = "" },
			wantField: "access_token",
		},
		{
			name:      "unknown operation",
			mutate:    func(c *OperationConfig) { c.Operation = "Delete" },
			wantField: "operation",
		},
		{
			name:      "download without remote path",
			mutate:    func(c *OperationConfig) { c.RemoteFilePath = "" },
			wantField: "file_path",
		},
		{
			name:      "download with relative path",
			mutate:    func(c *OperationConfig) { c.RemoteFilePath = "data.csv" },
			wantField: "file_path",
		},
		{
			name: "upload without destination",
			mutate: func(c *OperationConfig) {
				c.Operation = Upload
				c.UploadLocalPath = ""
			},
			wantField: "upload_path",
		},
		{
			name: "upload without local file",
			mutate: func(c *OperationConfig) {
				c.Operation = Upload
				c.FileName = ""
			},
			wantField: "file_name",
		},
		{
			name: "relative folder",
			mutate: func(c *OperationConfig) {
				c.Operation = ListFolder
				c.FolderPath = "Apps"
			},
			wantField: "folder_path",
		},
		{
			name:   "download by file id",
			mutate: func(c *OperationConfig) { c.RemoteFilePath = "id:a4ayc_80_OEAAAAAAAAAYa" },
		},
		{
			name:   "download by revision",
			mutate: func(c *OperationConfig) { c.RemoteFilePath = "rev:a1c10ce0dd78" },
		},
		{
			name: "upload into namespace",
			mutate: func(c *OperationConfig) {
				c.Operation = Upload
				c.UploadLocalPath = "ns:1234/new.xlsx"
			},
		},
		{
			name: "root folder",
			mutate: func(c *OperationConfig) {
				c.Operation = ListFolder
				c.FolderPath = "/"
			},
		},
		{
			name: "folder by id",
			mutate: func(c *OperationConfig) {
				c.Operation = ListFolder
				c.FolderPath = "id:a4ayc_80_OEAAAAAAAAAXw"
			},
		},
		{
			name:      "download with unknown prefix",
			mutate:    func(c *OperationConfig) { c.RemoteFilePath = "dbx:/data.csv" },
			wantField: "file_path",
		},
		{
			name:      "duplicate schema names",
			mutate:    func(c *OperationConfig) { c.Schema.Salary = c.Schema.Name },
			wantField: "schema.salary_field",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig(Download)
			test.mutate(&cfg)
			err := cfg.Validate()

			if test.wantField == "" {
				require.NoError(t, err)
				return
			}

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want *ConfigurationError, got %v", err)
			assert.Equal(t, test.wantField, cfgErr.Field)
		})
	}
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    OperationConfig
		wantErr string
	}{
		{
			name: "defaults applied",
			data: `
access_token = "tok"
operation = "listfolder"
`,
			want: OperationConfig{
				AccessToken: "tok",
				Operation:   ListFolder,
				FileName:    DefaultFileName,
				FolderPath:  DefaultFolderPath,
				Schema:      SchemaNames{ID: "Employee Id", Name: "Employee Name", Salary: "Salary"},
			},
		},
		{
			name: "all fields",
			data: `
access_token = "tok"
operation = "Download"
file_name = "local.bin"
folder_path = "/Reports"
file_path = "/Reports/q1.csv"
upload_path = "/Reports/out.bin"
csv_header = true

[schema]
id_field = "id"
name_field = "name"
salary_field = "amount"
`,
			want: OperationConfig{
				AccessToken:     "tok",
				Operation:       Download,
				FileName:        "local.bin",
				FolderPath:      "/Reports",
				RemoteFilePath:  "/Reports/q1.csv",
				UploadLocalPath: "/Reports/out.bin",
				CSVHeader:       true,
				Schema:          SchemaNames{ID: "id", Name: "name", Salary: "amount"},
			},
		},
		{
			name:    "unknown key",
			data:    `acces_token = "typo"`,
			wantErr: "parsing config file",
		},
		{
			name:    "invalid TOML",
			data:    `access_token = `,
			wantErr: "parsing config file",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := LoadFrom(strings.NewReader(test.data))

			if test.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "runner.toml")
		require.NoError(t, os.WriteFile(path, []byte("access_token = \"tok\"\noperation = \"Upload\"\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Upload, cfg.Operation)
		assert.Equal(t, DefaultFileName, cfg.FileName)
	})
}

func TestString_RedactsToken(t *testing.T) {
	t.Parallel()

	cfg := validConfig(Download)

	assert.NotContains(t, cfg.String(), cfg.AccessToken)
	assert.NotContains(t, fmt.Sprintf("%v", cfg), cfg.AccessToken)
	assert.Contains(t, cfg.String(), "[REDACTED]")
}

func TestOutputSchema(t *testing.T) {
	t.Parallel()

	cfg := validConfig(Download)
	cfg.Schema.Salary = "Amount"

	assert.Equal(t, []string{"Employee Id", "Employee Name", "Amount"}, cfg.OutputSchema().Names())
}
