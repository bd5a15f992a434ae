package dto

// UploadRequest is the body of POST /api/v1/images/upload.
type UploadRequest struct {
	UUID  string `json:"uuid"`
	Image string `json:"image"`
	Name  string `json:"name"`
}

type ShowRequest struct {
	Show *bool `json:"show"`
}

type FolderRequest struct {
	Path         string `json:"path"`
	DatabaseName string `json:"databaseName,omitempty"`
}
