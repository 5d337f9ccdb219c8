package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"busexplorer.nyc/internal/explorer"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{"boroughs", "caches", "feeds", "config"}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title:     title,
		Pre:       spew.Sdump(data),
		DataTypes: dataTypes,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "boroughs":
		data = webUI.Explorer.Boroughs()
		title = "Boroughs"
	case "caches":
		data = webUI.Explorer.CacheStats()
		title = "Caches"
	case "feeds":
		feeds := webUI.Explorer.CachedFeeds()
		infos := make(map[string]explorer.FeedInfo, len(feeds))
		for _, feed := range feeds {
			infos[feed.Borough] = feed.Info()
		}
		data = infos
		title = "Cached Feeds"
	case "config":
		cfg := webUI.Config
		cfg.ApiKeys = nil
		if cfg.Metrics.AppToken != "" {
			cfg.Metrics.AppToken = "[redacted]"
		}
		data = cfg
		title = "Configuration"
	default:
		data = map[string]string{
			"error": "Please use one of the following: boroughs, caches, feeds, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
