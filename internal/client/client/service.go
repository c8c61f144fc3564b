package client

import (
	"context"

	"github.com/plateful/plateful/internal/client/models"
)

// RecordPayload is the wire form of a record sent to the remote store.
// LocalID is echoed back by the bulk endpoint so create results can be
// correlated with local rows.
type RecordPayload struct {
	LocalID        string         `json:"localId,omitempty"`
	SharedEntityID string         `json:"sharedEntityId"`
	OwnerID        string         `json:"ownerId"`
	OriginOwnerID  string         `json:"originOwnerId,omitempty"`
	Payload        models.Payload `json:"payload"`
}

// RemoteUpdate addresses an existing remote row.
type RemoteUpdate struct {
	RemoteID string `json:"remoteId"`
	RecordPayload
}

// BulkRequest groups pending operations by kind for one bulk submission.
type BulkRequest struct {
	Creates []RecordPayload `json:"create"`
	Updates []RemoteUpdate  `json:"update"`
	Deletes []string        `json:"delete"`
}

// ItemResult is one successful create/update outcome inside a bulk response.
type ItemResult struct {
	LocalID  string `json:"localId,omitempty"`
	RemoteID string `json:"remoteId"`
	Status   string `json:"status"`
}

// ItemError is one failed item inside a bulk response. Identifier is the
// localId for creates and the remoteId for updates/deletes. StatusCode
// carries the HTTP-like class so callers can tell retriable from permanent.
type ItemError struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// BulkResponse is the structured per-item outcome of a bulk submission.
type BulkResponse struct {
	Created []ItemResult `json:"created"`
	Updated []ItemResult `json:"updated"`
	Deleted []string     `json:"deleted"`
	Failed  []ItemError  `json:"failed"`
}

// RemoteRecord is one row of the remote snapshot used for duplicate and
// ownership detection.
type RemoteRecord struct {
	RemoteID       string         `json:"remoteId"`
	SharedEntityID string         `json:"sharedEntityId"`
	OwnerID        string         `json:"ownerId"`
	OriginOwnerID  string         `json:"originOwnerId,omitempty"`
	Payload        models.Payload `json:"payload"`
}

// Client wraps the remote store's API. It performs no business logic, only
// request/response marshalling and HTTP-level retry of transient failures.
// All errors are mapped to the sentinel kinds in errors.go.
type Client interface {
	Close() error
	Login(ctx context.Context, curatorID string, password []byte) (string, error)
	Ping(ctx context.Context) error
	FetchSnapshot(ctx context.Context) ([]RemoteRecord, error)
	BulkSync(ctx context.Context, req *BulkRequest) (*BulkResponse, error)
	CreateRecord(ctx context.Context, payload RecordPayload) (string, error)
	UpdateRecord(ctx context.Context, remoteID string, payload RecordPayload) error
	DeleteRecord(ctx context.Context, remoteID string) error
}
