package webpage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yungbote/marketpulse/internal/pkg/httpx"
	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Config struct {
	UserAgent     string
	RatePerSecond float64
	MaxRetries    int
	Timeout       time.Duration
	MaxBodyBytes  int64
}

func LoadConfig() Config {
	return Config{
		UserAgent:     envutil.String("WEBPAGE_USER_AGENT", "marketpulse-ingest/1.0"),
		RatePerSecond: float64(envutil.Int("WEBPAGE_RPS", 5)),
		MaxRetries:    envutil.Int("WEBPAGE_MAX_RETRIES", 1),
		Timeout:       envutil.Seconds("WEBPAGE_TIMEOUT_SECONDS", 15),
		MaxBodyBytes:  int64(envutil.Int("WEBPAGE_MAX_BODY_BYTES", 2<<20)),
	}
}

// Page is what could be extracted from a linked article. Empty fields mean
// the page did not expose them. Failed marks the default record substituted
// for a fetch error, with Reason holding the error text.
type Page struct {
	URL         string     `json:"url"`
	Headline    string     `json:"headline"`
	Author      string     `json:"author"`
	Publisher   string     `json:"publisher"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Failed      bool       `json:"failed,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

type Fetcher struct {
	cfg Config
	req *httpx.Requester
}

func New(cfg Config, log *logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	req := httpx.NewRequester("webpage", &http.Client{Timeout: cfg.Timeout}, cfg.RatePerSecond, cfg.MaxRetries, log)
	req.MaxBody = cfg.MaxBodyBytes
	return &Fetcher{cfg: cfg, req: req}
}

// Fetch downloads rawURL and extracts article metadata and paragraph text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Page{}, fmt.Errorf("url required")
	}
	h := http.Header{}
	if f.cfg.UserAgent != "" {
		h.Set("User-Agent", f.cfg.UserAgent)
	}
	h.Set("Accept", "text/html,application/xhtml+xml")

	raw, hdr, err := f.req.Get(ctx, rawURL, h)
	if err != nil {
		return Page{}, err
	}
	if ct := hdr.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return Page{}, fmt.Errorf("webpage %s: unsupported content type %q", rawURL, ct)
	}
	page, err := Parse(raw)
	if err != nil {
		return Page{}, fmt.Errorf("webpage %s: %w", rawURL, err)
	}
	page.URL = rawURL
	return page, nil
}

// Parse extracts a Page from an HTML document.
func Parse(doc []byte) (Page, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return Page{}, err
	}
	var (
		p          Page
		title      string
		inArticle  []string
		paragraphs []string
	)
	var walk func(n *html.Node, insideArticle bool)
	walk = func(n *html.Node, insideArticle bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Header:
				return
			case atom.Title:
				if title == "" {
					title = textOf(n)
				}
			case atom.Meta:
				applyMeta(&p, n)
			case atom.Article:
				insideArticle = true
			case atom.P:
				if txt := textOf(n); txt != "" {
					if insideArticle {
						inArticle = append(inArticle, txt)
					} else {
						paragraphs = append(paragraphs, txt)
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, insideArticle)
		}
	}
	walk(root, false)

	if p.Headline == "" {
		p.Headline = title
	}
	if len(inArticle) > 0 {
		paragraphs = inArticle
	}
	p.Content = strings.Join(paragraphs, "\n")
	return p, nil
}

func applyMeta(p *Page, n *html.Node) {
	var key, content string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	if content == "" {
		return
	}
	switch key {
	case "og:title":
		p.Headline = content
	case "og:site_name":
		p.Publisher = content
	case "author", "article:author":
		if p.Author == "" {
			p.Author = content
		}
	case "article:published_time":
		if t, err := time.Parse(time.RFC3339, content); err == nil {
			t = t.UTC()
			p.PublishedAt = &t
		}
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
