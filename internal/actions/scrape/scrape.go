// Package scrape fetches a web page and extracts its title, headings and
// links. The result can optionally be written to a JSON file.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"

	"autokit/internal/sched"
	"autokit/pkg/logx"
)

const maxBody = 4 << 20 // 4 MiB cap on fetched pages

type Result struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	Title     string    `json:"title"`
	Headings  []string  `json:"headings"`
	Links     []string  `json:"links"`
}

// Params:
//
//	url (required) page to fetch
//	out_file       write the full result as JSON to this path
func Unit(client *http.Client, log logx.Logger) sched.ActionUnit {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return sched.ActionUnit{
		Name:           "scrape",
		Timeout:        time.Minute,
		ConcurrentSafe: true,
		Run: func(ctx context.Context, p sched.Params) (string, error) {
			return run(ctx, p, client, log)
		},
	}
}

func run(ctx context.Context, p sched.Params, client *http.Client, log logx.Logger) (string, error) {
	url := p.Get("url", "")
	if url == "" {
		return "", fmt.Errorf("scrape: url param is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("scrape: %w", err)
	}
	req.Header.Set("User-Agent", "autokit/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape: fetch %s: unexpected status %s", url, resp.Status)
	}

	res, err := Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("scrape: parse %s: %w", url, err)
	}
	res.URL = url
	res.FetchedAt = time.Now().UTC()

	if out := p.Get("out_file", ""); out != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", fmt.Errorf("scrape: encode result: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return "", fmt.Errorf("scrape: write %s: %w", out, err)
		}
		log.Debug("scrape result written", logx.String("file", out))
	}

	return fmt.Sprintf("%q: %d headings, %d links", res.Title, len(res.Headings), len(res.Links)), nil
}

// Parse extracts title, h1-h3 headings and anchor hrefs from an HTML document.
func Parse(r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	res := &Result{Headings: []string{}, Links: []string{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if res.Title == "" {
					res.Title = strings.TrimSpace(textOf(n))
				}
			case "h1", "h2", "h3":
				if t := strings.TrimSpace(textOf(n)); t != "" {
					res.Headings = append(res.Headings, t)
				}
			case "a":
				for _, a := range n.Attr {
					if a.Key == "href" && a.Val != "" && !strings.HasPrefix(a.Val, "#") {
						res.Links = append(res.Links, a.Val)
						break
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return res, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
