package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const (
	// DefaultClientID is the Globus Auth native-app registration for this
	// tool, created under the "Manage Apps" section of
	// https://auth.globus.org/v2/web/developers.
	DefaultClientID = "84d0b918-f49a-4136-a115-4206dafeba8a"

	// DefaultMirrorRoot is the dataset root on the mirror endpoint. Some
	// Globus deployments require a leading tilde, e.g. "~/chroot/sddata".
	DefaultMirrorRoot = "/chroot/sddata"

	// Defaults used to pick the mirror endpoint out of the search results.
	DefaultMirrorQuery       = "SuperDARN mirror"
	DefaultMirrorOwner       = "kevin.krieger@usask.ca"
	DefaultMirrorDescription = "Official"

	// DefaultListRetries is the number of directory-listing attempts needed
	// to reliably get past intermittent timeouts on the mirror.
	DefaultListRetries = 15

	// DefaultPollInterval is how often a submitted task is polled;
	// DefaultPerFileWait sizes the soft wait bound per transferred file.
	DefaultPollInterval = 30 * time.Second
	DefaultPerFileWait  = 30 * time.Second

	tokenFileName    = ".globus_transfer_rt"
	clientIDFileName = "client-id.txt"
)

// Config carries every tunable the synchronizer needs. It is assembled once
// at startup and handed to the workflow; nothing here is read from globals
// afterwards.
type Config struct {
	// ClientID identifies the Globus Auth application used by every
	// authorization flow.
	ClientID string

	// ClientSecret, when set, enables the confidential-client (service
	// account) flow instead of the native-app flows.
	ClientSecret string

	// TokenFile is the plain-text file persisting the transfer refresh
	// token between runs.
	TokenFile string

	// ClientIDFile is the Globus Connect Personal client-id file naming the
	// local delivery endpoint. It is maintained by globusconnectpersonal,
	// not by this tool, and is only ever read.
	ClientIDFile string

	// MirrorRoot is the dataset root directory on the mirror endpoint.
	MirrorRoot string

	// MirrorQuery is the endpoint-search text; MirrorOwner and
	// MirrorDescription are matched against the results to pick the
	// official mirror.
	MirrorQuery       string
	MirrorOwner       string
	MirrorDescription string

	// TransferURL overrides the Transfer API base URL. Empty selects the
	// public Globus deployment.
	TransferURL string

	// ListRetries bounds the directory-listing retry loop. ListRetryWait is
	// the pause between attempts; the mirror's listing timeouts clear on
	// immediate retry, so the default is no pause.
	ListRetries   int
	ListRetryWait time.Duration

	// PollInterval is how often the submitted task is polled; PerFileWait
	// sizes the soft wait bound (PerFileWait per transferred file).
	PollInterval time.Duration
	PerFileWait  time.Duration

	// NotifyOnSucceeded and NotifyOnFailed control the service-side email
	// notifications attached to the submitted task.
	NotifyOnSucceeded bool
	NotifyOnFailed    bool

	// Label is attached to submitted transfer tasks so they are easy to
	// find in the Globus activity view.
	Label string
}

// Default returns the stock configuration with file paths resolved under the
// user's home directory for the current platform.
func Default() *Config {
	return &Config{
		ClientID:          DefaultClientID,
		TokenFile:         filepath.Join(xdg.Home, tokenFileName),
		ClientIDFile:      filepath.Join(xdg.Home, ".globusonline", "lta", clientIDFileName),
		MirrorRoot:        DefaultMirrorRoot,
		MirrorQuery:       DefaultMirrorQuery,
		MirrorOwner:       DefaultMirrorOwner,
		MirrorDescription: DefaultMirrorDescription,
		ListRetries:       DefaultListRetries,
		PollInterval:      DefaultPollInterval,
		PerFileWait:       DefaultPerFileWait,
		NotifyOnFailed:    true,
		Label:             "superdarn-sync",
	}
}

// Load builds the runtime configuration: defaults, then an optional env
// file, then SDSYNC_* environment variables. envFile may be empty, in which
// case a .env in the working directory is picked up when present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		// Best effort: a malformed .env must not kill a scheduled run.
		_ = godotenv.Load()
	}

	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the workflow cannot run with.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client id must not be empty")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token file path must not be empty")
	}
	if c.ListRetries < 1 {
		return fmt.Errorf("list retries must be at least 1, got %d", c.ListRetries)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.PerFileWait < 0 {
		return fmt.Errorf("per-file wait must not be negative, got %s", c.PerFileWait)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.ClientID, "SDSYNC_CLIENT_ID")
	setString(&c.ClientSecret, "SDSYNC_CLIENT_SECRET")
	setString(&c.TokenFile, "SDSYNC_TOKEN_FILE")
	setString(&c.ClientIDFile, "SDSYNC_CLIENT_ID_FILE")
	setString(&c.MirrorRoot, "SDSYNC_MIRROR_ROOT")
	setString(&c.MirrorQuery, "SDSYNC_MIRROR_QUERY")
	setString(&c.MirrorOwner, "SDSYNC_MIRROR_OWNER")
	setString(&c.MirrorDescription, "SDSYNC_MIRROR_DESCRIPTION")
	setString(&c.TransferURL, "SDSYNC_TRANSFER_URL")
	setString(&c.Label, "SDSYNC_LABEL")
	setInt(&c.ListRetries, "SDSYNC_LIST_RETRIES")
	setDuration(&c.ListRetryWait, "SDSYNC_LIST_RETRY_WAIT")
	setDuration(&c.PollInterval, "SDSYNC_POLL_INTERVAL")
	setDuration(&c.PerFileWait, "SDSYNC_PER_FILE_WAIT")
	setBool(&c.NotifyOnSucceeded, "SDSYNC_NOTIFY_SUCCESS")
	setBool(&c.NotifyOnFailed, "SDSYNC_NOTIFY_FAILURE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
