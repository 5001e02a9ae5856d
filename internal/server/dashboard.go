package server

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/news"
	"github.com/ppiankov/hevcstat/internal/stats"
)

const dashboardTop = 50

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ratio": stats.FormatRatio,
	"withAll": func(values []string) []string {
		return append([]string{model.All}, values...)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>HEVC Advance patent statistics</title>
<style>
body{font-family:sans-serif;margin:1.5rem}
form{display:flex;gap:1rem;flex-wrap:wrap;align-items:end;margin-bottom:1rem}
.panels{display:flex;gap:2rem;flex-wrap:wrap}
table{border-collapse:collapse}
th,td{border:1px solid #ccc;padding:.2rem .5rem}
td.n{text-align:right}
</style>
</head>
<body>
<h1>HEVC Advance patent statistics</h1>
<form method="get" action="/">
  <label>Profile<br><select name="profile">{{range withAll .Options.Profiles}}<option{{if eq . $.Query.Profile}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Country<br><select name="country">{{range withAll .Options.Countries}}<option{{if eq . $.Query.Country}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Licensor<br><select name="licensor">{{range withAll .Options.Licensors}}<option{{if eq . $.Query.Licensor}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Inventor contains<br><input name="inventor" value="{{.Query.Inventor}}"></label>
  <button type="submit">Apply</button>
  <a href="/report?{{.RawQuery}}">Report</a>
</form>
<div class="panels">
{{range .Panels}}
<section>
  <h2>{{.Dimension.Label}}</h2>
  <p>Total number: patents ({{.Summary.Total}}) unique {{.Dimension.Plural}} ({{.Summary.Unique}})</p>
  <p><a href="/api/stats/{{.Dimension}}/csv?{{$.CSVQuery}}">Download CSV</a></p>
  <table>
    <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
    {{$inv := eq (print .Dimension) "inventor"}}
    {{range .Rows}}<tr><td>{{.Value}}</td><td class="n">{{.Count}}</td><td class="n">{{ratio .Ratio}}</td>{{if $inv}}<td class="n">{{ratio .NormalizedRatio}}</td>{{end}}</tr>
    {{else}}<tr><td colspan="4">No patents match.</td></tr>{{end}}
  </table>
</section>
{{end}}
</div>
{{if .NewsEnabled}}
<section>
  <h2>News</h2>
  {{if .NewsError}}<p>News feed unavailable: {{.NewsError}}</p>{{end}}
  <ul>{{range .News}}<li><a href="{{.Link}}">{{.Title}}</a>{{if .Source}} ({{.Source}}){{end}}{{if not .Published.IsZero}} {{.Published.Format "2006-01-02"}}{{end}}</li>{{end}}</ul>
</section>
{{end}}
</body>
</html>
`))

type dashboardPanel struct {
	Dimension model.Dimension
	Header    []string
	Summary   model.Summary
	Rows      []model.AggregationRow
}

type dashboardData struct {
	Query       model.Query
	RawQuery    template.URL
	CSVQuery    template.URL // RawQuery limited to the rows a panel shows
	Options     model.Options
	Panels      []dashboardPanel
	NewsEnabled bool
	News        []news.Entry
	NewsError   string
}

func csvQuery(values url.Values) string {
	values.Set("limit", strconv.Itoa(dashboardTop))
	return values.Encode()
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(r)
	q.Profile = orAll(q.Profile)
	q.Country = orAll(q.Country)
	q.Licensor = orAll(q.Licensor)

	data := dashboardData{
		Query:       q,
		RawQuery:    template.URL(r.URL.RawQuery),
		CSVQuery:    template.URL(csvQuery(r.URL.Query())),
		Options:     s.store.Options(),
		NewsEnabled: s.news != nil,
	}
	for _, dim := range model.Dimensions {
		resp := s.aggregate(dim, q)
		data.Panels = append(data.Panels, dashboardPanel{
			Dimension: dim,
			Header:    stats.Header(dim),
			Summary:   resp.Summary,
			Rows:      stats.Top(resp.Rows, dashboardTop),
		})
	}

	if s.news != nil {
		entries, _, err := s.latestNews(r.Context(), "")
		if err != nil {
			data.NewsError = err.Error()
		}
		data.News = entries
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("render dashboard", zap.Error(err))
	}
}
