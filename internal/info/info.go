package info

import (
	"context"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"blackmarket/internal/format"
	"blackmarket/internal/journal"
	"blackmarket/internal/logger"
	"blackmarket/internal/middleware"
	"blackmarket/internal/session"
)

const (
	defaultRecent = 25
	maxRecent     = 200
)

// JournalReader is the read side of the intent journal.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	CountByOutcome(ctx context.Context) (map[string]int, error)
}

// Sources feeds the diagnostics page. Any field may be nil.
type Sources struct {
	Loop     *session.Loop
	Journal  JournalReader
	Delivery func() (delivered, dropped int64)
	Clients  func() int
	Frames   func() int64
	Started  time.Time
}

// SessionStats summarises the live storefront.
type SessionStats struct {
	SessionID  string        `json:"sessionId"`
	Phase      session.Phase `json:"phase"`
	Categories int           `json:"categories"`
	Items      int           `json:"items"`
	CatalogAge string        `json:"catalogAge,omitempty"`
	CartLines  int           `json:"cartLines"`
	CartTotal  int64         `json:"cartTotal"`
	Balance    string        `json:"balance"`
}

// Stats is served as JSON and rendered on the info page.
type Stats struct {
	Uptime         string          `json:"uptime"`
	Session        *SessionStats   `json:"session,omitempty"`
	Delivered      int64           `json:"delivered"`
	Dropped        int64           `json:"dropped"`
	RenderClients  int             `json:"renderClients"`
	RenderedFrames int64           `json:"renderedFrames"`
	JournalCounts  map[string]int  `json:"journalCounts,omitempty"`
	Recent         []journal.Entry `json:"recent,omitempty"`
	GeneratedAt    time.Time       `json:"generatedAt"`
}

// Handler serves /info and /api/info/stats.
type Handler struct {
	src Sources
}

func NewHandler(src Sources) *Handler {
	if src.Started.IsZero() {
		src.Started = time.Now()
	}
	return &Handler{src: src}
}

var infoPageTmpl = template.Must(template.New("info").Funcs(template.FuncMap{
	"number": func(n int64) string { return format.Number(n) },
	"money":  func(n int64) string { return format.Money(n) },
	"ago":    humanize.Time,
}).Parse(infoPageHTML))

// InfoPageHandler renders the diagnostics page.
func (h *Handler) InfoPageHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	stats := h.collect(r.Context(), parseLimit(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := infoPageTmpl.Execute(w, stats); err != nil {
		logger.LogError("Failed to render info template: %v", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	logger.LogDebug("Info page generated in %v", time.Since(startTime))
}

// StatsHandler serves the same numbers as JSON.
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	middleware.WriteAPISuccess(w, r, h.collect(r.Context(), parseLimit(r)))
}

func (h *Handler) collect(ctx context.Context, limit int) Stats {
	stats := Stats{
		Uptime:      strings.TrimSpace(humanize.RelTime(h.src.Started, time.Now(), "", "")),
		GeneratedAt: time.Now(),
	}

	if h.src.Loop != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		var ss SessionStats
		err := h.src.Loop.Do(ctx, func(s *session.Session) error {
			cs := s.CatalogStats()
			ss = SessionStats{
				SessionID:  s.ID(),
				Phase:      s.Phase(),
				Categories: cs.Categories,
				Items:      cs.Items,
				CartLines:  len(s.CartLines()),
				CartTotal:  s.CartTotal(),
			}
			if s.ID() != "" && !cs.LoadedAt.IsZero() {
				ss.CatalogAge = humanize.Time(cs.LoadedAt)
			}
			if b := s.Balance(); b.Known {
				ss.Balance = format.CurrencyLabel(b.CurrencyType) + " " + format.Money(b.Amount)
			}
			return nil
		})
		cancel()
		if err != nil {
			logger.LogWarn("Session stats unavailable: %v", err)
		} else {
			stats.Session = &ss
		}
	}

	if h.src.Delivery != nil {
		stats.Delivered, stats.Dropped = h.src.Delivery()
	}
	if h.src.Clients != nil {
		stats.RenderClients = h.src.Clients()
	}
	if h.src.Frames != nil {
		stats.RenderedFrames = h.src.Frames()
	}

	if h.src.Journal != nil {
		counts, err := h.src.Journal.CountByOutcome(ctx)
		if err != nil {
			logger.LogError("Failed to count journal entries: %v", err)
		}
		stats.JournalCounts = counts

		recent, err := h.src.Journal.Recent(ctx, limit)
		if err != nil {
			logger.LogError("Failed to load recent intents: %v", err)
		}
		stats.Recent = recent
	}
	return stats
}

func parseLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultRecent
	}
	if n > maxRecent {
		return maxRecent
	}
	return n
}

const infoPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Storefront diagnostics</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #111; color: #ddd; }
table { border-collapse: collapse; margin-bottom: 2em; }
td, th { border: 1px solid #333; padding: 4px 10px; text-align: left; }
.dropped { color: #e66; }
</style>
</head>
<body>
<h1>Storefront diagnostics</h1>
<p>Up {{.Uptime}}. Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}.</p>

<h2>Session</h2>
{{with .Session}}
<table>
<tr><th>Session</th><td>{{if .SessionID}}{{.SessionID}}{{else}}none{{end}}</td></tr>
<tr><th>Phase</th><td>{{.Phase}}</td></tr>
<tr><th>Categories</th><td>{{.Categories}}</td></tr>
<tr><th>Items</th><td>{{.Items}}</td></tr>
<tr><th>Catalog loaded</th><td>{{if .CatalogAge}}{{.CatalogAge}}{{else}}never{{end}}</td></tr>
<tr><th>Cart lines</th><td>{{.CartLines}}</td></tr>
<tr><th>Cart total</th><td>{{money .CartTotal}}</td></tr>
<tr><th>Balance</th><td>{{if .Balance}}{{.Balance}}{{else}}unknown{{end}}</td></tr>
</table>
{{else}}
<p>Session loop not responding.</p>
{{end}}

<h2>Delivery</h2>
<table>
<tr><th>Delivered</th><td>{{number .Delivered}}</td></tr>
<tr><th>Dropped</th><td class="dropped">{{number .Dropped}}</td></tr>
<tr><th>Render clients</th><td>{{.RenderClients}}</td></tr>
<tr><th>Frames rendered</th><td>{{number .RenderedFrames}}</td></tr>
</table>

{{if .JournalCounts}}
<h2>Journal</h2>
<table>
{{range $outcome, $n := .JournalCounts}}<tr><th>{{$outcome}}</th><td>{{$n}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Recent}}
<h2>Recent intents</h2>
<table>
<tr><th>When</th><th>Action</th><th>Outcome</th><th>Body</th><th>Error</th></tr>
{{range .Recent}}<tr>
<td>{{ago .CreatedAt}}</td><td>{{.Action}}</td>
<td class="{{.Outcome}}">{{.Outcome}}</td>
<td><code>{{.BodyJSON}}</code></td><td>{{.Error}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
