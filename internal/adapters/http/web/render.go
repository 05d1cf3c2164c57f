package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/okian/vitaldash/internal/domain/display"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/domain/types"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames are the templates that can be rendered; each is parsed together with layout.html.
var pageNames = []string{
	"dashboard",
	"health_record",
	"risk_assessment",
	"insurance_policies",
	"login",
	"register",
}

var funcs = template.FuncMap{
	"na":          func() string { return display.Placeholder },
	"text":        display.Text,
	"number":      display.Number,
	"fixed1":      display.Fixed1,
	"withUnit":    display.WithUnit,
	"percent":     display.Percent,
	"fraction":    display.Fraction,
	"barWidth":    display.BarWidth,
	"money":       display.Money,
	"date":        display.Date,
	"dateOf":      display.DateOf,
	"humanizeKey": display.HumanizeKey,
	"bmiCategory": display.BMICategoryOf,
	"bmiColor":    display.BMIColorOf,
	"statusColor": display.StatusColor,
	"riskColor":   display.RiskLevelColor,
	"latest":      model.Latest,
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplate, name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// view is the data passed to every template.
type view struct {
	Title  string
	Active string
	User   *model.User
	// Loading asks the browser to reload shortly; some data is still in flight.
	Loading bool
	Notice  string
	Error   string
	Form    map[string]string
	Data    any
}

// render executes a page into a buffer so a failing template never
// produces a half-written response.
func (h *Handler) render(ctx context.Context, w http.ResponseWriter, status int, name string, v view) {
	t, ok := h.pages[name]
	if !ok {
		h.logger.Error(ctx, "unknown page", logger.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if v.User == nil {
		if sess := SessionFrom(ctx); sess.Authenticated() {
			v.User = sess.User
		}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		h.logger.Error(ctx, "failed to render page", logger.String("page", name), logger.Error(fmt.Errorf("%w: %v", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// stateOf reports the combined state of several results: any failure wins,
// then any loading.
func stateOf(states ...types.State) types.State {
	out := types.Loaded
	for _, s := range states {
		switch s {
		case types.Failed:
			return types.Failed
		case types.Loading:
			out = types.Loading
		}
	}
	return out
}

func recordRender(page string, state types.State) {
	metrics.RecordPageRender(page, state.String())
}
