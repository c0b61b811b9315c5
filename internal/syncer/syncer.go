// Package syncer drives one synchronization run against the SuperDARN
// mirror: resolve the mirror and personal endpoints, list the requested
// slice of the mirror with a server-side filter, submit a checksum-verified
// bulk copy and wait out a soft timeout while the service moves the files.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/SuperDARNCanada/globus/internal/config"
	"github.com/SuperDARNCanada/globus/internal/transfer"
)

// Synchronizer runs the mirror-to-local workflow. It is built once per
// command invocation and runs sequentially.
type Synchronizer struct {
	cfg    *config.Config
	client *transfer.Client
	out    io.Writer
	logger *slog.Logger
	dryRun bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithOutput redirects progress output, which otherwise goes to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Synchronizer) { s.out = w }
}

// WithLogger enables debug logging. A nil logger disables it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithDryRun stops a run after the listing: the files that would move are
// reported and nothing is submitted.
func WithDryRun(dryRun bool) Option {
	return func(s *Synchronizer) { s.dryRun = dryRun }
}

// New returns a Synchronizer running against client with cfg's tunables.
func New(cfg *config.Config, client *transfer.Client, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		cfg:    cfg,
		client: client,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MirrorEndpoint searches for the official mirror endpoint and returns its
// id. The fulltext query alone is not specific enough, so the hit must also
// carry the configured contact email and description markers.
func (s *Synchronizer) MirrorEndpoint(ctx context.Context) (string, error) {
	endpoints, err := s.client.EndpointSearch(ctx, s.cfg.MirrorQuery, "")
	if err != nil {
		return "", fmt.Errorf("mirror endpoint search failed: %w", err)
	}
	for _, ep := range endpoints {
		if strings.Contains(ep.ContactEmail, s.cfg.MirrorOwner) &&
			strings.Contains(ep.Description, s.cfg.MirrorDescription) {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "resolved mirror endpoint",
					"id", ep.ID, "display_name", ep.DisplayName)
			}
			return ep.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no endpoint matching %q is owned by %s",
		ErrEndpointNotFound, s.cfg.MirrorQuery, s.cfg.MirrorOwner)
}

// PersonalEndpoint resolves the destination endpoint id: the client-id file
// maintained by Globus Connect Personal when present, otherwise the first
// activated and connected endpoint among the caller's own GCP installs. The
// file only exists when the tool runs on the endpoint's own filesystem,
// which is the usual cron setup but not the only one.
func (s *Synchronizer) PersonalEndpoint(ctx context.Context) (string, error) {
	id, err := readEndpointIDFile(s.cfg.ClientIDFile)
	if err == nil {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "resolved personal endpoint from file",
				"id", id, "path", s.cfg.ClientIDFile)
		}
		return id, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	endpoints, err := s.client.EndpointSearch(ctx, "", transfer.MyGCPEndpointsScope)
	if err != nil {
		return "", fmt.Errorf("personal endpoint search failed: %w", err)
	}
	for _, ep := range endpoints {
		if ep.Activated && ep.GCPConnected {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "resolved personal endpoint by discovery",
					"id", ep.ID, "display_name", ep.DisplayName)
			}
			return ep.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no activated Globus Connect Personal endpoint", ErrEndpointNotFound)
}

// ResolveEndpoints resolves the mirror and personal endpoint ids, in that
// order.
func (s *Synchronizer) ResolveEndpoints(ctx context.Context) (mirrorID, personalID string, err error) {
	mirrorID, err = s.MirrorEndpoint(ctx)
	if err != nil {
		return "", "", err
	}
	personalID, err = s.PersonalEndpoint(ctx)
	if err != nil {
		return "", "", err
	}
	return mirrorID, personalID, nil
}

func readEndpointIDFile(name string) (string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read endpoint id file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	id := strings.TrimSpace(line)
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("endpoint id file %s does not contain an endpoint id: %w", name, err)
	}
	return id, nil
}

// ListFiles lists the requested mirror directory with the derived filter
// and returns the matching file names in listing order. The mirror's
// listing operation times out intermittently, so transient failures are
// retried up to the configured attempt budget; errors that a retry cannot
// fix abort immediately.
func (s *Synchronizer) ListFiles(ctx context.Context, mirrorID string, req Request) ([]string, error) {
	listingPath := req.RemotePath(s.cfg.MirrorRoot)
	filter := req.Filter()
	fmt.Fprintf(s.out, "Listing %s on endpoint %s with filter %s\n", listingPath, mirrorID, filter)
	fmt.Fprintln(s.out, "Note: this can take several minutes")

	var entries []transfer.FileEntry
	attempts := 0
	operation := func() error {
		attempts++
		fmt.Fprint(s.out, ".")
		var err error
		entries, err = s.client.ListDirectory(ctx, mirrorID, listingPath, filter)
		if err != nil && !transfer.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(s.cfg.ListRetryWait),
		uint64(s.cfg.ListRetries-1),
	)
	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	fmt.Fprintln(s.out)
	if err != nil {
		if transfer.IsTransient(err) {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrListingFailed, attempts, err)
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names, nil
}

// Submit builds the transfer request, one item per listed file, and submits
// it. Sources are rooted in the mirror directory the listing came from,
// destinations in the request's local directory.
func (s *Synchronizer) Submit(ctx context.Context, mirrorID, personalID string, req Request, files []string) (*transfer.TransferResult, error) {
	treq := transfer.NewTransferRequest(mirrorID, personalID)
	treq.Label = s.cfg.Label
	treq.NotifyOnSucceeded = s.cfg.NotifyOnSucceeded
	treq.NotifyOnFailed = s.cfg.NotifyOnFailed

	sourceDir := req.RemotePath(s.cfg.MirrorRoot)
	for _, name := range files {
		treq.AddItem(sourceDir+name, path.Join(req.LocalDir, name))
	}

	result, err := s.client.Submit(ctx, treq)
	if err != nil {
		return nil, fmt.Errorf("transfer submission failed: %w", err)
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "transfer submitted",
			"task_id", result.TaskID, "files", len(files))
	}
	return result, nil
}

// Await polls the submitted task until it finishes or the soft timeout runs
// out. The timeout scales with the file count; reaching it only stops the
// waiting, the task itself keeps running server-side.
func (s *Synchronizer) Await(ctx context.Context, taskID string, fileCount int) (bool, error) {
	timeout := time.Duration(fileCount) * s.cfg.PerFileWait
	task, completed, err := s.client.WaitForTask(ctx, taskID, timeout, s.cfg.PollInterval)
	if err != nil {
		return false, err
	}
	if !completed {
		fmt.Fprintln(s.out, "Transfer has not completed yet but may still be running. Check https://www.globus.org/app/activity for the status.")
		return false, nil
	}

	if task.Status == transfer.TaskSucceeded {
		fmt.Fprintln(s.out, "Transfer finished")
		fmt.Fprintf(s.out, "  files transferred: %d\n", task.FilesTransferred)
		if task.FilesSkipped > 0 {
			fmt.Fprintf(s.out, "  files skipped: %d\n", task.FilesSkipped)
		}
		fmt.Fprintf(s.out, "  bytes transferred: %d\n", task.BytesTransferred)
		return true, nil
	}
	fmt.Fprintf(s.out, "Transfer ended with status %s\n", task.Status)
	if task.NiceStatus != "" {
		fmt.Fprintf(s.out, "  detail: %s\n", task.NiceStatus)
	}
	return true, nil
}

// Run performs one complete synchronization. Bad arguments, unresolvable
// endpoints and an exhausted listing budget fail the run; once the listing
// is in hand, service trouble is reported but does not fail the run, since
// a submitted task survives this process and the next scheduled run picks
// up whatever is missing.
func (s *Synchronizer) Run(ctx context.Context, req Request) error {
	if err := req.Validate(time.Now()); err != nil {
		return err
	}
	mirrorID, personalID, err := s.ResolveEndpoints(ctx)
	if err != nil {
		return err
	}

	files, err := s.ListFiles(ctx, mirrorID, req)
	if err != nil {
		if errors.Is(err, ErrListingFailed) || errors.Is(err, context.Canceled) {
			return err
		}
		s.reportServiceError(err)
		return nil
	}
	fmt.Fprintf(s.out, "Found %d files\n", len(files))

	if s.dryRun {
		fmt.Fprintf(s.out, "Dry run - %d files would be transferred to %s:\n", len(files), req.LocalDir)
		for _, name := range files {
			fmt.Fprintf(s.out, "  %s\n", name)
		}
		return nil
	}

	soft := time.Duration(len(files)) * s.cfg.PerFileWait
	fmt.Fprintf(s.out, "Transferring %d files with a soft timeout of %.0f s\n", len(files), soft.Seconds())

	result, err := s.Submit(ctx, mirrorID, personalID, req, files)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.reportServiceError(err)
		return nil
	}
	fmt.Fprintf(s.out, "Submitted transfer task %s\n", result.TaskID)

	if _, err := s.Await(ctx, result.TaskID, len(files)); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.reportServiceError(err)
		return nil
	}
	return nil
}

// reportServiceError prints service trouble in the same shape the API
// reports it, so the operator has the code and request id to quote when
// asking the mirror's admins what happened.
func (s *Synchronizer) reportServiceError(err error) {
	var apiErr *transfer.APIError
	switch {
	case errors.As(err, &apiErr):
		code := apiErr.Code
		if code == "" {
			code = fmt.Sprintf("HTTP %d", apiErr.StatusCode)
		}
		fmt.Fprintln(s.out, "Transfer API error")
		fmt.Fprintf(s.out, "  code: %s\n", code)
		fmt.Fprintf(s.out, "  message: %s\n", apiErr.Message)
		if apiErr.RequestID != "" {
			fmt.Fprintf(s.out, "  request id: %s\n", apiErr.RequestID)
		}
	case isTimeout(err):
		fmt.Fprintf(s.out, "Transfer service request timed out: %v\n", err)
	default:
		fmt.Fprintf(s.out, "Error communicating with the transfer service: %v\n", err)
	}
}

func isTimeout(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
