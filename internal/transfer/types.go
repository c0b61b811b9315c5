package transfer

// Sync levels accepted by the Transfer API. Checksum is the strongest:
// content is re-verified rather than trusting size or timestamps.
const (
	SyncLevelExists   = 0
	SyncLevelSize     = 1
	SyncLevelMtime    = 2
	SyncLevelChecksum = 3
)

// Task statuses reported by the Transfer API.
const (
	TaskActive    = "ACTIVE"
	TaskInactive  = "INACTIVE"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
)

// Endpoint search scopes. MyGCPEndpointsScope restricts the search to the
// caller's own Globus Connect Personal installs.
const (
	AllScope            = "all"
	MyEndpointsScope    = "my-endpoints"
	MyGCPEndpointsScope = "my-gcp-endpoints"
)

// Endpoint is the subset of the endpoint document this tool reads.
type Endpoint struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	OwnerString  string `json:"owner_string"`
	ContactEmail string `json:"contact_email"`
	Activated    bool   `json:"activated"`
	GCPConnected bool   `json:"gcp_connected"`
}

type endpointPage struct {
	Data        []Endpoint `json:"DATA"`
	HasNextPage bool       `json:"has_next_page"`
}

// FileEntry is one entry of a directory listing.
type FileEntry struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

type fileList struct {
	Path string      `json:"path"`
	Data []FileEntry `json:"DATA"`
}

// TransferItem pairs one source path with its destination path.
type TransferItem struct {
	DataType        string `json:"DATA_TYPE"`
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
}

// TransferRequest is a bulk copy submitted to the service as one unit. The
// zero value is not usable; start from NewTransferRequest.
type TransferRequest struct {
	DataType            string         `json:"DATA_TYPE"`
	SubmissionID        string         `json:"submission_id"`
	SourceEndpoint      string         `json:"source_endpoint"`
	DestinationEndpoint string         `json:"destination_endpoint"`
	Label               string         `json:"label,omitempty"`
	SyncLevel           int            `json:"sync_level"`
	NotifyOnSucceeded   bool           `json:"notify_on_succeeded"`
	NotifyOnFailed      bool           `json:"notify_on_failed"`
	Data                []TransferItem `json:"DATA"`
}

// NewTransferRequest builds a checksum-verified transfer between two
// endpoints with no items yet. Failure notifications are on and success
// notifications off, matching how unattended syncs want to be emailed.
func NewTransferRequest(sourceEndpoint, destinationEndpoint string) *TransferRequest {
	return &TransferRequest{
		DataType:            "transfer",
		SourceEndpoint:      sourceEndpoint,
		DestinationEndpoint: destinationEndpoint,
		SyncLevel:           SyncLevelChecksum,
		NotifyOnFailed:      true,
		Data:                []TransferItem{},
	}
}

// AddItem appends one source/destination pair to the request.
func (r *TransferRequest) AddItem(sourcePath, destinationPath string) {
	r.Data = append(r.Data, TransferItem{
		DataType:        "transfer_item",
		SourcePath:      sourcePath,
		DestinationPath: destinationPath,
	})
}

// TransferResult is the acceptance document returned at submission time.
type TransferResult struct {
	TaskID       string `json:"task_id"`
	SubmissionID string `json:"submission_id"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// Task is the polled view of a submitted job. Its lifecycle is owned by the
// service; this struct is only ever a snapshot.
type Task struct {
	TaskID           string `json:"task_id"`
	Status           string `json:"status"`
	NiceStatus       string `json:"nice_status"`
	Label            string `json:"label"`
	Files            int    `json:"files"`
	FilesSkipped     int    `json:"files_skipped"`
	FilesTransferred int    `json:"files_transferred"`
	BytesTransferred int64  `json:"bytes_transferred"`
}

// Done reports whether the task reached a terminal state.
func (t *Task) Done() bool {
	return t.Status == TaskSucceeded || t.Status == TaskFailed
}
