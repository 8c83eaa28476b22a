// Package render assembles the HTML fragment for a region.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/message-inserter/message-inserter/internal/breakpoint"
	"github.com/message-inserter/message-inserter/internal/store"
)

// Options controls fragment output.
type Options struct {
	// Width, when positive, emits only the variant matching that viewport
	// width instead of every variant plus media queries.
	Width int
}

type fragmentData struct {
	Region   string
	CSS      template.CSS
	Messages []messageData
}

type messageData struct {
	ID          int64
	Type        string
	Style       template.CSS
	Dismissible bool
	Variants    []variantData
}

type variantData struct {
	Class    string
	ImageURL string
	ImageAlt string
	LinkURL  string
	Content  template.HTML
	Text     string
	Button   *store.Button
}

var fragmentTmpl = template.Must(template.New("region").Parse(
	`{{if .Messages}}<div class="mi-region mi-region-{{.Region}}" data-mi-region-rendered="{{.Region}}">
{{- if .CSS}}<style>{{.CSS}}</style>{{end}}
{{- range .Messages}}
<div class="mi-message mi-{{.Type}}" data-mi-id="{{.ID}}"{{if .Style}} style="{{.Style}}"{{end}}>
{{- range .Variants}}
<div class="{{.Class}}">
{{- if .ImageURL}}{{if .LinkURL}}<a href="{{.LinkURL}}">{{end}}<img src="{{.ImageURL}}" alt="{{.ImageAlt}}">{{if .LinkURL}}</a>{{end}}{{end}}
{{- if .Content}}<div class="mi-content">{{.Content}}</div>{{end}}
{{- if .Text}}<p class="mi-text">{{if .LinkURL}}<a href="{{.LinkURL}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</p>{{end}}
{{- with .Button}}<a class="mi-button" href="{{.URL}}">{{.Text}}</a>{{end}}
</div>
{{- end}}
{{- if .Dismissible}}
<button type="button" class="mi-close" data-mi-dismiss="{{.ID}}" aria-label="Close">&times;</button>
{{- end}}
</div>
{{- end}}
</div>{{end}}`))

// Region renders the fragment for msgs. An empty list renders nothing.
func Region(region string, msgs []*store.Message, opts Options) (string, error) {
	data := fragmentData{Region: region}

	var css strings.Builder
	for _, m := range msgs {
		md := messageData{
			ID:          m.ID,
			Type:        string(m.Type),
			Style:       bannerStyle(m),
			Dismissible: m.Dismissible(),
		}

		if opts.Width > 0 {
			i, ok := breakpoint.Select(m.ScreenSizes, opts.Width)
			if !ok {
				continue
			}
			md.Variants = []variantData{variant(m, i)}
		} else {
			for i := range m.ScreenSizes {
				md.Variants = append(md.Variants, variant(m, i))
			}
			css.WriteString(breakpoint.Stylesheet(m.ID, m.ScreenSizes))
		}

		data.Messages = append(data.Messages, md)
	}
	data.CSS = template.CSS(css.String())

	var buf bytes.Buffer
	if err := fragmentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render region %s: %w", region, err)
	}
	return buf.String(), nil
}

func variant(m *store.Message, i int) variantData {
	size := m.ScreenSizes[i]
	v := variantData{
		Class:   breakpoint.ClassName(m.ID, i),
		LinkURL: size.LinkURL,
		Button:  size.Button,
	}

	switch m.Type {
	case store.TypeImage:
		v.ImageURL = size.ImageURL
		v.ImageAlt = size.ImageAlt
	case store.TypeEditor:
		// Editor content is administrator-authored markup.
		v.Content = template.HTML(size.Content)
	case store.TypeBanner:
		v.Text = size.Content
	}
	return v
}

func bannerStyle(m *store.Message) template.CSS {
	if m.Type != store.TypeBanner {
		return ""
	}
	var parts []string
	if c := m.BannerColors.Background; c != "" && safeColor(c) {
		parts = append(parts, "background-color:"+c)
	}
	if c := m.BannerColors.Text; c != "" && safeColor(c) {
		parts = append(parts, "color:"+c)
	}
	return template.CSS(strings.Join(parts, ";"))
}

// safeColor accepts hex colours and plain colour names.
func safeColor(c string) bool {
	if strings.HasPrefix(c, "#") {
		c = c[1:]
		if len(c) != 3 && len(c) != 6 && len(c) != 8 {
			return false
		}
		for _, r := range c {
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return false
			}
		}
		return true
	}
	for _, r := range c {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return c != ""
}
