package bridge

import "github.com/mmcdole/appshelf/internal/domain"

// ServiceName is the RPC service the store daemon registers
const ServiceName = "StoreDaemon"

// QueryPackagesRequest resolves entries against the local package system.
type QueryPackagesRequest struct {
	Queries []domain.PackageQuery `json:"queries"`
}

// QueryPackagesResponse maps entry name to its local package record.
type QueryPackagesResponse struct {
	Packages map[string]domain.Package `json:"packages"`
}

// AppInstalledRequest asks whether an entry is installed.
type AppInstalledRequest struct {
	Name string `json:"name"`
}

// AppInstalledResponse answers AppInstalledRequest.
type AppInstalledResponse struct {
	Installed bool `json:"installed"`
}

// GetJobByNameRequest asks for the active job touching an entry.
type GetJobByNameRequest struct {
	Name string `json:"name"`
}

// GetJobByNameResponse carries the job, nil when none is active.
type GetJobByNameResponse struct {
	Job *domain.Job `json:"job,omitempty"`
}

// PackagesRequest carries the entries of an install or remove.
type PackagesRequest struct {
	Queries []domain.PackageQuery `json:"queries"`
}

// JobResponse returns the job created for an install or remove.
type JobResponse struct {
	Job domain.Job `json:"job"`
}

// OpenAppRequest launches an installed entry.
type OpenAppRequest struct {
	Query domain.PackageQuery `json:"query"`
}

// OpenAppResponse acknowledges OpenAppRequest.
type OpenAppResponse struct{}

// QueryDownloadSizeRequest asks for the bytes an install would download.
type QueryDownloadSizeRequest struct {
	Queries []domain.PackageQuery `json:"queries"`
}

// QueryDownloadSizeResponse answers QueryDownloadSizeRequest.
type QueryDownloadSizeResponse struct {
	Size int64 `json:"size"`
}

// StatusRequest asks for daemon status.
type StatusRequest struct{}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Version string       `json:"version"`
	PID     int          `json:"pid"`
	Jobs    []domain.Job `json:"jobs"`
}
