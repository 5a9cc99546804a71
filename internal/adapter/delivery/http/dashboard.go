package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type linkView struct {
	ShortCode   string
	ShortURL    string
	OriginalURL string
	Clicks      int64
	LastClicked string
	Created     string
}

func newLinkView(baseURL string, link *entity.Link, now time.Time) linkView {
	lastClicked := "Never"
	if link.LastClicked != nil {
		lastClicked = humanize.RelTime(*link.LastClicked, now, "ago", "from now")
	}

	return linkView{
		ShortCode:   link.ShortCode,
		ShortURL:    baseURL + "/" + link.ShortCode,
		OriginalURL: link.OriginalURL,
		Clicks:      link.Clicks,
		LastClicked: lastClicked,
		Created:     humanize.RelTime(link.CreatedAt, now, "ago", "from now"),
	}
}

type dashboardHandler struct {
	useCase linkUseCase
	now     func() time.Time
}

func newDashboardHandler(useCase linkUseCase) *dashboardHandler {
	return &dashboardHandler{
		useCase: useCase,
		now:     time.Now,
	}
}

func (h *dashboardHandler) index(w http.ResponseWriter, r *http.Request) {
	links, err := h.useCase.ListLinks(r.Context())
	if err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	baseURL := requestBaseURL(r)
	now := h.now()

	views := make([]linkView, 0, len(links))
	for _, link := range links {
		views = append(views, newLinkView(baseURL, link, now))
	}

	h.render(w, r, http.StatusOK, "dashboard.html", map[string]any{
		"Title": "Dashboard",
		"Links": views,
	})
}

func (h *dashboardHandler) stats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	link, err := h.useCase.GetLink(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrLinkNotFound) {
			h.render(w, r, http.StatusNotFound, "not_found.html", map[string]any{
				"Title": "Not Found",
			})
			return
		}

		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.render(w, r, http.StatusOK, "stats.html", map[string]any{
		"Title": "Stats for /" + link.ShortCode,
		"Link":  newLinkView(requestBaseURL(r), link, h.now()),
	})
}

// render executes into a buffer first so a template error still yields a clean 500.
func (h *dashboardHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer

	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host
}
