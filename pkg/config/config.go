// Package config holds the operation configuration for a single Dropbox run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sdelicata/dropbox-runner/pkg/schema"
)

// Operation selects which Dropbox call a run performs.
type Operation string

const (
	Download   Operation = "Download"
	ListFolder Operation = "ListFolder"
	Upload     Operation = "Upload"
)

// Defaults for the paths the host tool used to hard-code.
const (
	DefaultFolderPath = "/Apps/Test"
	DefaultFileName   = "new.xlsx"
)

// TokenEnv is the environment variable consulted when no token is configured.
const TokenEnv = "DROPBOX_TOKEN"

// ErrUnknownOperation is returned for an operation name outside Download, ListFolder and Upload.
var ErrUnknownOperation = errors.New("unknown operation")

// ParseOperation maps a name to an Operation, ignoring case.
func ParseOperation(s string) (Operation, error) {
	for _, op := range []Operation{Download, ListFolder, Upload} {
		if strings.EqualFold(s, string(op)) {
			return op, nil
		}
	}
	return Operation(s), fmt.Errorf("%w %q", ErrUnknownOperation, s)
}

// ConfigurationError reports a missing or invalid configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SchemaNames holds the configurable output field names.
type SchemaNames struct {
	ID     string `toml:"id_field"`
	Name   string `toml:"name_field"`
	Salary string `toml:"salary_field"`
}

// OperationConfig is the immutable input of a run.
type OperationConfig struct {
	AccessToken     string      `toml:"access_token"`
	Operation       Operation   `toml:"operation"`
	FileName        string      `toml:"file_name"`   // local file read by Upload
	FolderPath      string      `toml:"folder_path"` // remote folder for ListFolder, "/" for the root
	RemoteFilePath  string      `toml:"file_path"`   // remote file for Download
	UploadLocalPath string      `toml:"upload_path"` // Dropbox destination for Upload
	CSVHeader       bool        `toml:"csv_header"`
	Schema          SchemaNames `toml:"schema"`
}

// Load reads a TOML configuration file and applies defaults.
func Load(path string) (OperationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OperationConfig{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFrom(bytes.NewReader(data))
}

// LoadFrom decodes a TOML configuration from r and applies defaults.
func LoadFrom(r io.Reader) (OperationConfig, error) {
	var cfg OperationConfig
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return OperationConfig{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults returns a copy with empty optional fields filled in.
func (c OperationConfig) WithDefaults() OperationConfig {
	if c.FolderPath == "" {
		c.FolderPath = DefaultFolderPath
	}
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.Schema.ID == "" {
		c.Schema.ID = schema.DefaultIDField
	}
	if c.Schema.Name == "" {
		c.Schema.Name = schema.DefaultNameField
	}
	if c.Schema.Salary == "" {
		c.Schema.Salary = schema.DefaultSalaryField
	}
	if op, err := ParseOperation(string(c.Operation)); err == nil {
		c.Operation = op
	}
	return c
}

// OutputSchema builds the output schema from the configured field names.
func (c OperationConfig) OutputSchema() schema.Schema {
	return schema.New(c.Schema.ID, c.Schema.Name, c.Schema.Salary)
}

// Validate checks that the fields required by the selected operation are present.
// Every failure is a *ConfigurationError.
func (c OperationConfig) Validate() error {
	if c.AccessToken == "" {
		return &ConfigurationError{Field: "access_token", Reason: "is required"}
	}

	op, err := ParseOperation(string(c.Operation))
	if err != nil {
		return &ConfigurationError{Field: "operation", Reason: err.Error()}
	}

	switch op {
	case Download:
		if err := requireRemotePath("file_path", c.RemoteFilePath); err != nil {
			return err
		}
	case ListFolder:
		// "" and "/" both address the Dropbox root.
		if c.FolderPath != "" && !isRemotePath(c.FolderPath) {
			return &ConfigurationError{Field: "folder_path", Reason: remotePathReason}
		}
	case Upload:
		if err := requireRemotePath("upload_path", c.UploadLocalPath); err != nil {
			return err
		}
		if c.FileName == "" {
			return &ConfigurationError{Field: "file_name", Reason: "is required"}
		}
	}

	names := []struct{ key, val string }{
		{"schema.id_field", c.Schema.ID},
		{"schema.name_field", c.Schema.Name},
		{"schema.salary_field", c.Schema.Salary},
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n.val == "" {
			return &ConfigurationError{Field: n.key, Reason: "is required"}
		}
		if seen[n.val] {
			return &ConfigurationError{Field: n.key, Reason: fmt.Sprintf("duplicate field name %q", n.val)}
		}
		seen[n.val] = true
	}

	return nil
}

const remotePathReason = "must be an absolute path or start with id:, ns: or rev:"

// remotePathPrefixes are the forms Dropbox accepts for a path argument.
var remotePathPrefixes = []string{"/", "id:", "ns:", "rev:"}

func isRemotePath(path string) bool {
	for _, prefix := range remotePathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func requireRemotePath(field, path string) error {
	if path == "" {
		return &ConfigurationError{Field: field, Reason: "is required"}
	}
	if !isRemotePath(path) {
		return &ConfigurationError{Field: field, Reason: remotePathReason}
	}
	return nil
}

// String renders the configuration with the access token redacted.
func (c OperationConfig) String() string {
	token := ""
	if c.AccessToken != "" {
		token = "[REDACTED]"
	}
	return fmt.Sprintf("OperationConfig{operation=%s access_token=%s file_name=%q folder_path=%q file_path=%q upload_path=%q csv_header=%t}",
		c.Operation, token, c.FileName, c.FolderPath, c.RemoteFilePath, c.UploadLocalPath, c.CSVHeader)
}
