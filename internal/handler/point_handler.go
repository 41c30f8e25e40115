package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"sketchsync/internal/domain"
	"sketchsync/internal/middleware"
	"sketchsync/internal/service"
	"sketchsync/pkg/response"

	"github.com/go-playground/validator/v10"
)

type PointHandler struct {
	service  *service.PointService
	validate *validator.Validate
}

func NewPointHandler(service *service.PointService) *PointHandler {
	validate := validator.New()
	validate.RegisterStructValidation(pointStructLevel, domain.Point{})

	return &PointHandler{
		service:  service,
		validate: validate,
	}
}

// pointStructLevel enforces that separators carry no coordinates and
// drawable points carry both.
func pointStructLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(domain.Point)

	if p.IsEndOfSegment {
		if p.X != nil {
			sl.ReportError(p.X, "x", "X", "separator_null", "")
		}
		if p.Y != nil {
			sl.ReportError(p.Y, "y", "Y", "separator_null", "")
		}
		return
	}

	if p.X == nil {
		sl.ReportError(p.X, "x", "X", "required", "")
	}
	if p.Y == nil {
		sl.ReportError(p.Y, "y", "Y", "required", "")
	}
}

func (h *PointHandler) Add(w http.ResponseWriter, r *http.Request) {
	var points domain.PointSequence
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		response.BadRequest(w, "invalid request payload")
		return
	}

	for i := range points {
		if err := h.validate.Struct(points[i]); err != nil {
			response.BadRequest(w, fmt.Sprintf("point %d: %s", i, err.Error()))
			return
		}
	}

	accepted, err := h.service.Append(middleware.GetViewerID(r), points)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, verr.Error())
			return
		}
		response.InternalError(w, "failed to store points")
		return
	}

	response.Success(w, accepted)
}

func (h *PointHandler) List(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.List()
	if err != nil {
		response.InternalError(w, "failed to list points")
		return
	}

	response.Success(w, points)
}

func (h *PointHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ack, err := h.service.Reset(middleware.GetViewerID(r))
	if err != nil {
		response.InternalError(w, "failed to reset store")
		return
	}

	response.Success(w, ack)
}
