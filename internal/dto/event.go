package dto

import (
	"slideshow/internal/model"
	"slideshow/internal/service/notify"
)

// ThumbnailsKind marks a ThumbnailsMessage.
const ThumbnailsKind = "thumbnails"

// ThumbnailsMessage tells observers that new thumbnails can be fetched from the image list.
type ThumbnailsMessage struct {
	Kind      string `json:"kind"`
	Generated int    `json:"generated"`
}

// EventMessage is pushed to websocket observers. It never carries image bytes.
type EventMessage struct {
	Kind  string     `json:"kind"`
	Image *ImageInfo `json:"image,omitempty"`
}

func NewEventMessage(ev notify.Event) EventMessage {
	msg := EventMessage{Kind: string(ev.Kind)}
	if ev.Image != nil {
		info := NewImageInfo(ev.Image, nil)
		msg.Image = &info
	}
	return msg
}

// ImageInfos converts records without payload bytes.
func ImageInfos(images []model.Image) []ImageInfo {
	infos := make([]ImageInfo, 0, len(images))
	for i := range images {
		infos = append(infos, NewImageInfo(&images[i], nil))
	}
	return infos
}
