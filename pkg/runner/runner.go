// Package runner performs a single configured Dropbox operation and emits its result.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sdelicata/dropbox-runner/pkg/config"
	"github.com/sdelicata/dropbox-runner/pkg/dropbox"
	"github.com/sdelicata/dropbox-runner/pkg/output"
	"github.com/sdelicata/dropbox-runner/pkg/schema"
)

// State is the lifecycle position of a Runner.
type State int

const (
	Initialized State = iota
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "initialized"
}

// Dropbox is the subset of the Dropbox API a run needs. *dropbox.Client implements it.
type Dropbox interface {
	Download(ctx context.Context, remotePath string) ([]byte, error)
	ListFolder(ctx context.Context, remotePath string) (*dropbox.ListFolderResponse, error)
	Upload(ctx context.Context, remotePath string, data []byte) (*dropbox.UploadResult, error)
}

// RunResult is the normalized outcome of a run. Which fields are set depends on the operation.
type RunResult struct {
	Operation  config.Operation
	Rows       []schema.Row                // Download
	Listing    *dropbox.ListFolderResponse // ListFolder
	StatusCode int                         // Upload
	Upload     *dropbox.UploadResult       // Upload
}

// Option configures a Runner.
type Option func(*Runner)

// WithClient injects the Dropbox client instead of building one from the access token.
func WithClient(c Dropbox) Option {
	return func(r *Runner) { r.client = c }
}

// WithRunID sets the identifier attached to every log event of the run.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// Runner executes exactly one Dropbox operation.
type Runner struct {
	cfg    config.OperationConfig
	schema schema.Schema
	anchor output.Anchor
	client Dropbox
	runID  string
	state  State
	logger zerolog.Logger
}

// Initialize validates cfg, opens anchor with the output schema and returns a runner in the
// Initialized state. A configuration problem is returned as a *ConfigurationError and no
// network call is made.
func Initialize(cfg config.OperationConfig, anchor output.Anchor, logger zerolog.Logger, opts ...Option) (*Runner, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		schema: cfg.OutputSchema(),
		anchor: anchor,
		state:  Initialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = logger.With().Str("run_id", r.runID).Str("operation", string(cfg.Operation)).Logger()
	if r.client == nil {
		r.client = dropbox.NewClient(cfg.AccessToken, r.logger)
	}

	if err := anchor.Open(r.schema); err != nil {
		return nil, fmt.Errorf("opening output anchor: %w", err)
	}

	r.logger.Info().Strs("fields", r.schema.Names()).Msg("runner initialized")
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State { return r.state }

// RunID returns the run identifier.
func (r *Runner) RunID() string { return r.runID }

// Run performs the configured operation. The runner moves to Completed whether or not the
// operation succeeds; a failed run is not retried and emits no rows.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.state == Completed {
		return nil, ErrAlreadyCompleted
	}
	defer func() { r.state = Completed }()

	res, err := r.dispatch(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("run failed")
		return nil, err
	}

	event := r.logger.Info()
	switch r.cfg.Operation {
	case config.Download:
		event = event.Int("rows", len(res.Rows))
	case config.ListFolder:
		event = event.Int("entries", len(res.Listing.Entries))
	case config.Upload:
		event = event.Int("status", res.StatusCode)
	}
	event.Msg("run completed")

	return res, nil
}

func (r *Runner) dispatch(ctx context.Context) (*RunResult, error) {
	switch r.cfg.Operation {
	case config.Download:
		return r.download(ctx)
	case config.ListFolder:
		return r.listFolder(ctx)
	case config.Upload:
		return r.upload(ctx)
	default:
		return nil, &ConfigurationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", r.cfg.Operation)}
	}
}

func (r *Runner) download(ctx context.Context) (*RunResult, error) {
	data, err := r.client.Download(ctx, r.cfg.RemoteFilePath)
	if err != nil {
		return nil, &TransferError{Op: config.Download, Err: err}
	}

	rows, err := schema.ParseCSV(bytes.NewReader(data), r.schema, r.cfg.CSVHeader)
	if err != nil {
		return nil, &TransferError{Op: config.Download, Err: err}
	}

	if err := r.anchor.Write(rows); err != nil {
		return nil, fmt.Errorf("writing output rows: %w", err)
	}

	return &RunResult{Operation: config.Download, Rows: rows}, nil
}

// listFolder passes the listing through; its entries are not mapped into the output schema,
// so the anchor receives an empty batch.
func (r *Runner) listFolder(ctx context.Context) (*RunResult, error) {
	listing, err := r.client.ListFolder(ctx, r.cfg.FolderPath)
	if err != nil {
		return nil, &TransferError{Op: config.ListFolder, Err: err}
	}

	if err := r.anchor.Write(nil); err != nil {
		return nil, fmt.Errorf("writing output rows: %w", err)
	}

	return &RunResult{Operation: config.ListFolder, Listing: listing}, nil
}

func (r *Runner) upload(ctx context.Context) (*RunResult, error) {
	data, err := os.ReadFile(r.cfg.FileName)
	if err != nil {
		return nil, &TransferError{Op: config.Upload, Err: fmt.Errorf("reading upload file: %w", err)}
	}
	r.logger.Debug().Str("file", r.cfg.FileName).Int("bytes", len(data)).Msg("read upload file")

	res, err := r.client.Upload(ctx, r.cfg.UploadLocalPath, data)
	if err != nil {
		return nil, &TransferError{Op: config.Upload, Err: err}
	}

	return &RunResult{Operation: config.Upload, StatusCode: res.StatusCode, Upload: res}, nil
}
