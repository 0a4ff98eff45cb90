package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eventboard/app/internal/carousel"
	"github.com/eventboard/app/internal/models"
)

func TestCreateBanner(t *testing.T) {
	mem, engine := setupProjection(t)
	validate := validator.New()
	handler := CreateBanner(mem, validate, zap.NewNop())

	t.Run("valid url", func(t *testing.T) {
		req := withViewer(httptest.NewRequest(http.MethodPost, "/api/banners",
			strings.NewReader(`{"image_url":"https://img.example/banner.png"}`)), "admin")
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
		}
		waitFor(t, func() bool { return len(engine.Banners()) == 1 })
	})

	t.Run("rejects a non-url", func(t *testing.T) {
		req := withViewer(httptest.NewRequest(http.MethodPost, "/api/banners",
			strings.NewReader(`{"image_url":"not a url"}`)), "admin")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestDeleteBanner(t *testing.T) {
	mem, engine := setupProjection(t)

	banner, err := mem.CreateBanner(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		&models.Banner{ImageURL: "https://img.example/a.png"})
	if err != nil {
		t.Fatalf("CreateBanner() error = %v", err)
	}
	waitFor(t, func() bool { return len(engine.Banners()) == 1 })

	req := withViewer(httptest.NewRequest(http.MethodDelete, "/api/banners/"+banner.ID, nil), "admin")
	rec := httptest.NewRecorder()
	DeleteBanner(mem, zap.NewNop())(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	waitFor(t, func() bool { return len(engine.Banners()) == 0 })
}

func TestCarouselState(t *testing.T) {
	car := carousel.New()
	car.SetCount(3)
	car.Advance()

	rec := httptest.NewRecorder()
	CarouselState(car)(rec, httptest.NewRequest(http.MethodGet, "/api/carousel", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := map[string]int{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["index"] != 1 || resp["count"] != 3 {
		t.Errorf("carousel state = %v, want index 1 count 3", resp)
	}
}
