package dto

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"slideshow/internal/model"
)

// ImageInfo is the wire form of a catalog record. Data holds base64 image bytes
// (thumbnail in lists, full image for single lookups) or "".
type ImageInfo struct {
	UUID           string    `json:"uuid" yaml:"uuid"`
	Filename       string    `json:"filename" yaml:"filename"`
	UploadedFrom   string    `json:"uploadedFrom" yaml:"uploadedFrom"`
	TotalViewCount int       `json:"totalViewCount" yaml:"totalViewCount"`
	Show           bool      `json:"show" yaml:"show"`
	CreatedDate    time.Time `json:"createdDate" yaml:"createdDate"`
	Data           string    `json:"data" yaml:"data,omitempty"`
}

// NewImageInfo converts a record, encoding data when present.
func NewImageInfo(img *model.Image, data []byte) ImageInfo {
	info := ImageInfo{
		UUID:           img.ID,
		Filename:       img.Filename,
		UploadedFrom:   img.UploadedFrom,
		TotalViewCount: img.TotalViewCount,
		Show:           img.Show,
		CreatedDate:    img.CreatedDate,
	}
	if len(data) > 0 {
		info.Data = base64.StdEncoding.EncodeToString(data)
	}
	return info
}

// MarshalJSON writes createdDate as RFC 3339 in UTC.
func (p ImageInfo) MarshalJSON() ([]byte, error) {
	type Alias ImageInfo
	return json.Marshal(&struct {
		CreatedDate string `json:"createdDate"`
		Alias
	}{
		CreatedDate: p.CreatedDate.UTC().Format(time.RFC3339),
		Alias:       (Alias)(p),
	})
}
