package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"slideshow/internal/dto"
	"slideshow/internal/logger"
	"slideshow/internal/model"
	"slideshow/internal/service"
	"slideshow/internal/service/catalog"
)

const (
	msgImageNotFound = "Image not found"
	msgNoImages      = "No images"
)

// ListImagesHandler returns every record, newest first, with base64 thumbnails
// where one has been generated.
func ListImagesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat := manager.GetCatalog()
		files := manager.GetFiles()

		images, err := cat.All()
		if err != nil {
			logger.Error("Error listing catalog: %v", err)
			writeFailure(w, http.StatusInternalServerError, "Unable to list images", logger)
			return
		}

		sort.SliceStable(images, func(i, j int) bool {
			return images[i].CreatedDate.After(images[j].CreatedDate)
		})

		infos := make([]dto.ImageInfo, 0, len(images))
		for i := range images {
			var thumb []byte
			if path := cat.ThumbnailPath(images[i].Filename); files.Exists(path) {
				if thumb, err = files.ReadFile(path); err != nil {
					logger.Warning("Unreadable thumbnail for %s: %v", images[i].Filename, err)
				}
			}
			infos = append(infos, dto.NewImageInfo(&images[i], thumb))
		}

		writeJSON(w, http.StatusOK, dto.ImagesResponse{Success: true, Images: infos}, logger)
	}
}

// GetImageHandler returns one record with its full-resolution bytes.
func GetImageHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["uuid"]

		img, err := manager.GetCatalog().FindByID(id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeFailure(w, http.StatusNotFound, msgImageNotFound, logger)
				return
			}
			logger.Error("Error looking up image %s: %v", id, err)
			writeFailure(w, http.StatusInternalServerError, "Unable to load image", logger)
			return
		}

		writeJSON(w, http.StatusOK, dto.ImageResponse{Success: true, Image: fullImage(manager, img, logger)}, logger)
	}
}

// NextImageHandler runs the rotation and returns the chosen image with its bytes.
func NextImageHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := manager.GetCatalog().SelectNext(r.Context())
		if err != nil {
			if errors.Is(err, catalog.ErrNoImages) {
				writeJSON(w, http.StatusOK, dto.ImageResponse{Success: false, Message: msgNoImages}, logger)
				return
			}
			logger.Error("Error selecting next image: %v", err)
			writeFailure(w, http.StatusInternalServerError, "Unable to select image", logger)
			return
		}

		writeJSON(w, http.StatusOK, dto.ImageResponse{Success: true, Image: fullImage(manager, img, logger)}, logger)
	}
}

// SetShowHandler toggles the visibility flag of one image.
func SetShowHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["uuid"]

		var req dto.ShowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Show == nil {
			writeFailure(w, http.StatusBadRequest, "Field show is required", logger)
			return
		}

		img, err := manager.GetCatalog().SetShow(r.Context(), id, *req.Show)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				writeFailure(w, http.StatusNotFound, msgImageNotFound, logger)
				return
			}
			logger.Error("Error updating visibility of %s: %v", id, err)
			writeFailure(w, http.StatusInternalServerError, "Unable to update image", logger)
			return
		}

		info := dto.NewImageInfo(img, nil)
		writeJSON(w, http.StatusOK, dto.ImageResponse{Success: true, Image: &info}, logger)
	}
}

func fullImage(manager *service.Manager, img *model.Image, logger *logger.Logger) *dto.ImageInfo {
	data, err := manager.GetFiles().ReadFile(manager.GetCatalog().ImagePath(img.Filename))
	if err != nil {
		logger.Warning("Image file for %s unreadable: %v", img.Filename, err)
	}
	info := dto.NewImageInfo(img, data)
	return &info
}
