package dto

// ImagesResponse is the payload of GET /api/v1/images.
type ImagesResponse struct {
	Success bool        `json:"success"`
	Images  []ImageInfo `json:"images"`
}

// ImageResponse is the payload of single-image lookups.
type ImageResponse struct {
	Success bool       `json:"success"`
	Image   *ImageInfo `json:"image,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Response is the generic success/failure envelope.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
