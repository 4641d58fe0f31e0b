package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/auth"
)

//go:embed templates
var templateFS embed.FS

// Page names accepted by Render.
const (
	PageRegister         = "register"
	PageLogin            = "login"
	PageResetPassword    = "resetpassword"
	PageProfile          = "profile"
	PageProducts         = "products"
	PageStaticProducts   = "static_products"
	PageRealtimeProducts = "realtime_products"
	PageCart             = "cart"
	PageWebchat          = "webchat"
)

// Fragment names shared by pages and the realtime stream.
const (
	FragmentProductRows = "product_rows"
	FragmentChatLog     = "chat_log"
	FragmentChatNotice  = "chat_notice"
)

var pageNames = []string{
	PageRegister,
	PageLogin,
	PageResetPassword,
	PageProfile,
	PageProducts,
	PageStaticProducts,
	PageRealtimeProducts,
	PageCart,
	PageWebchat,
}

// Page is the data every full page receives.
type Page struct {
	Title string
	User  *auth.Principal
	Data  any
}

// Renderer holds the parsed page and fragment templates.
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

var funcs = template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":  strings.Join,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	fragments, err := template.New("fragments").Funcs(funcs).ParseFS(templateFS, "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing fragments: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		base, err := fragments.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning fragments for %s: %w", name, err)
		}
		t, err := base.ParseFS(templateFS, "templates/layout.html", "templates/pages/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, fragments: fragments}, nil
}

// Render writes a full page.
func (r *Renderer) Render(w io.Writer, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Fragment renders a named fragment to a string.
func (r *Renderer) Fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering fragment %s: %w", name, err)
	}
	return buf.String(), nil
}
