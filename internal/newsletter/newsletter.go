// Package newsletter renders the weekly movie digest and optionally delivers
// it by email.
package newsletter

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/types"
)

// DefaultThreshold is the minimum rating for a movie to make the picks
// section.
const DefaultThreshold = 4.0

const digestTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
	body { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; }
	h1 { color: #2c3e50; }
	h2 { color: #7f8c8d; font-size: 15px; margin-top: 30px; }
	.movie { border-bottom: 1px solid #eee; padding: 15px 0; }
	.movie-title { font-size: 18px; font-weight: bold; color: #34495e; }
	.rating { color: #27ae60; font-weight: bold; font-size: 16px; }
	.venue { color: #7f8c8d; font-size: 14px; }
	.high-rating { background-color: #d5f4e6; padding: 2px 8px; border-radius: 3px; }
	.appendix { color: #95a5a6; font-size: 13px; }
	a { color: #3498db; text-decoration: none; }
</style>
</head>
<body>
<h1>&#127916; NYC Movie Picks - {{.Date}}</h1>
<p>Here are this week's top-rated movies playing in NYC theaters:</p>
{{if not .Picks}}<p>No movies found this week.</p>{{end}}
{{range $i, $m := .Picks}}
<div class="movie">
	<div class="movie-title">{{inc $i}}. {{$m.Title}}</div>
	<div class="rating{{if $m.High}} high-rating{{end}}">{{$m.RatingDisplay}}</div>
	<div class="venue">&#128205; {{$m.Venue}}</div>
	<div>
		{{if $m.LetterboxdURL}}<a href="{{$m.LetterboxdURL}}">Letterboxd</a>{{end}}
		{{if $m.URL}} | <a href="{{$m.URL}}">Tickets</a>{{end}}
	</div>
</div>
{{end}}
{{if .NoRating}}
<h2>Playing but unrated on Letterboxd</h2>
{{range .NoRating}}<p class="appendix">{{.Title}} ({{.Venue}})</p>{{end}}
{{end}}
{{if .NotFound}}
<h2>Couldn't match on Letterboxd</h2>
{{range .NotFound}}<p class="appendix">{{.Title}} ({{.Venue}})</p>{{end}}
{{end}}
</body>
</html>
`

var tmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(digestTemplate))

type pick struct {
	Title         string
	Venue         string
	URL           string
	LetterboxdURL string
	RatingDisplay string
	High          bool

	rating float64
}

type digest struct {
	Date     string
	Picks    []pick
	NoRating []types.MergedMovie
	NotFound []types.MergedMovie
}

// Generator renders and delivers the digest.
type Generator struct {
	threshold float64
	smtp      config.SMTP
	now       func() time.Time
}

// New creates a Generator. threshold <= 0 uses DefaultThreshold.
func New(threshold float64, smtpCfg config.SMTP) *Generator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Generator{threshold: threshold, smtp: smtpCfg, now: time.Now}
}

// GenerateHTML renders the digest: rated movies at or above the threshold,
// sorted by rating descending, followed by appendix sections for unrated
// and unmatched films.
func (g *Generator) GenerateHTML(movies []types.MergedMovie) (string, error) {
	d := digest{Date: g.now().Format("January 2, 2006")}

	for _, m := range movies {
		switch {
		case m.Rating != nil && *m.Rating >= g.threshold:
			d.Picks = append(d.Picks, pick{
				Title:         m.Title,
				Venue:         m.Venue,
				URL:           m.URL,
				LetterboxdURL: m.LetterboxdURL,
				RatingDisplay: fmt.Sprintf("⭐ %.1f", *m.Rating),
				High:          *m.Rating >= DefaultThreshold,
				rating:        *m.Rating,
			})
		case m.LetterboxdURL != "":
			d.NoRating = append(d.NoRating, m)
		default:
			d.NotFound = append(d.NotFound, m)
		}
	}

	sort.SliceStable(d.Picks, func(i, j int) bool {
		return d.Picks[i].rating > d.Picks[j].rating
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render newsletter: %w", err)
	}
	return buf.String(), nil
}

// SaveToFile writes the rendered digest under dir with a dated name and
// returns the path.
func (g *Generator) SaveToFile(dir, content string) (string, error) {
	if dir == "" {
		dir = "newsletters"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create newsletter directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("newsletter-%s.html", g.now().Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write newsletter: %w", err)
	}
	return path, nil
}

// Send delivers the digest over SMTP. When delivery is not configured it
// returns false with no error so callers can log and move on.
func (g *Generator) Send(html string) (bool, error) {
	if !g.smtp.Enabled() {
		return false, nil
	}

	subject := fmt.Sprintf("NYC Movie Picks - %s", g.now().Format("January 2"))
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", g.smtp.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(g.smtp.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", g.smtp.Host, g.smtp.Port)
	var auth smtp.Auth
	if g.smtp.Username != "" {
		auth = smtp.PlainAuth("", g.smtp.Username, g.smtp.Password, g.smtp.Host)
	}
	if err := smtp.SendMail(addr, auth, g.smtp.From, g.smtp.To, []byte(msg.String())); err != nil {
		return false, fmt.Errorf("failed to send newsletter: %w", err)
	}
	return true, nil
}
