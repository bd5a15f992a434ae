package model

import "time"

// Image is one catalog entry backed by a file in the image folder.
type Image struct {
	ID             string     `json:"uuid" yaml:"uuid"`
	Filename       string     `json:"filename" yaml:"filename"`
	UploadedFrom   string     `json:"uploadedFrom" yaml:"uploadedFrom"`
	CreatedDate    time.Time  `json:"createdDate" yaml:"createdDate"`
	LastViewedDate *time.Time `json:"lastViewedDate,omitempty" yaml:"lastViewedDate,omitempty"`
	TotalViewCount int        `json:"totalViewCount" yaml:"totalViewCount"`
	SortViewCount  int        `json:"sortViewCount" yaml:"sortViewCount"`
	Show           bool       `json:"show" yaml:"show"`
}

// NeverShown reports whether the image has not been selected for presentation yet.
func (i *Image) NeverShown() bool {
	return i.LastViewedDate == nil
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (i *Image) Clone() *Image {
	c := *i
	if i.LastViewedDate != nil {
		t := *i.LastViewedDate
		c.LastViewedDate = &t
	}
	return &c
}
