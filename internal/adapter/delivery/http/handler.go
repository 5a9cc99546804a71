package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type linkUseCase interface {
	CreateLink(ctx context.Context, originalURL, shortCode string) (*entity.Link, error)
	ListLinks(ctx context.Context) ([]*entity.Link, error)
	GetLink(ctx context.Context, shortCode string) (*entity.Link, error)
	DeleteLink(ctx context.Context, shortCode string) error
	ResolveShortCode(ctx context.Context, shortCode string) (*entity.Link, error)
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

func (h *linkHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	link, err := h.useCase.CreateLink(r.Context(), req.OriginalURL, req.ShortCode)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrOriginalURLRequired):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, fieldErrorResponse("originalUrl", entity.ErrOriginalURLRequired.Error()))
		case errors.Is(err, entity.ErrInvalidShortCode):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, fieldErrorResponse("shortCode", entity.ErrInvalidShortCode.Error()))
		case errors.Is(err, entity.ErrShortCodeExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, shortCodeExistsResponse)
		default:
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponses(links))
}

func (h *linkHandler) getLink(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	link, err := h.useCase.GetLink(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) deleteLink(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if err := h.useCase.DeleteLink(r.Context(), shortCode); err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, linkNotFoundResponse)
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, linkDeletedResponse)
}

// redirect answers in plain text because it is hit by browsers, not API clients.
func (h *linkHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	link, err := h.useCase.ResolveShortCode(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			writeText(w, http.StatusNotFound, "Not Found")
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, text)
}
