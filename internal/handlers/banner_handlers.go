package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/carousel"
	"github.com/eventboard/app/internal/models"
	"github.com/eventboard/app/internal/projection"
	"github.com/eventboard/app/internal/store"
)

// ListBanners returns the banner list in the store's order, newest first.
func ListBanners(engine *projection.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"banners": engine.Banners(),
		})
	}
}

type createBannerRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// CreateBanner handles admin creation of a carousel banner.
func CreateBanner(st store.Store, validate *validator.Validate, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createBannerRequest{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			RespondError(w, http.StatusBadRequest, "image_url must be a valid url")
			return
		}

		created, err := st.CreateBanner(r.Context(), &models.Banner{ImageURL: req.ImageURL})
		if err != nil {
			log.Error("create banner failed", zap.Error(err))
			RespondError(w, http.StatusInternalServerError, "failed to create banner")
			return
		}
		RespondJSON(w, http.StatusCreated, created)
	}
}

// DeleteBanner handles admin deletion of a banner.
// Path: /api/banners/{id}
func DeleteBanner(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bannerID := strings.TrimPrefix(r.URL.Path, "/api/banners/")
		if bannerID == "" || strings.Contains(bannerID, "/") {
			RespondError(w, http.StatusBadRequest, "banner id missing in url path")
			return
		}

		if err := st.DeleteBanner(r.Context(), bannerID); err != nil {
			log.Error("delete banner failed", zap.String("banner_id", bannerID), zap.Error(err))
			RespondError(w, http.StatusInternalServerError, "failed to delete banner")
			return
		}
		RespondJSON(w, http.StatusOK, map[string]string{"deleted": bannerID})
	}
}

// CarouselState returns the current carousel index and banner count.
func CarouselState(car *carousel.Carousel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, count := car.State()
		RespondJSON(w, http.StatusOK, map[string]int{
			"index": index,
			"count": count,
		})
	}
}
