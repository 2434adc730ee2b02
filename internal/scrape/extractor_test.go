package scrape

import "testing"

func TestExtractor_PrefersVideoExtensions(t *testing.T) {
	body := `<html><body>
		<a href="https://cdn.example.com/page-about">about</a>
		<a href="https://cdn.example.com/clip/abc.mp4?tk=1">download</a>
		<img src="https://cdn.example.com/thumb.jpg">
	</body></html>`

	e := NewExtractor()
	links := e.Extract(body)
	if len(links) == 0 {
		t.Fatal("no links extracted")
	}
	if got := links[0]; got != "https://cdn.example.com/clip/abc.mp4?tk=1" {
		t.Errorf("first link = %q, want the mp4 candidate", got)
	}
}

func TestExtractor_DenylistAndPageFilters(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"platform host", `<a href="https://www.youtube.com/watch?v=abc">x</a>`},
		{"service asset", `<script src="https://cdnjs.example.com/app.js"></script>`},
		{"stylesheet", `<link href="https://video.example.com/site.css">`},
		{"page link", `<a href="https://video.example.com/index.html">x</a>`},
		{"analytics", `<img src="https://analytics.example.com/video/pixel">`},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if links := e.Extract(tt.body); len(links) != 0 {
				t.Errorf("extracted %v, want nothing", links)
			}
		})
	}
}

func TestExtractor_HintsGateNonMediaLinks(t *testing.T) {
	body := `<a href="https://files.example.com/random/asset">x</a>
		<a href="https://cdn7.example.com/asset">y</a>`

	e := NewExtractor()
	links := e.Extract(body)
	if len(links) != 1 || links[0] != "https://cdn7.example.com/asset" {
		t.Errorf("links = %v, want only the cdn candidate", links)
	}
}

func TestExtractor_DataVideoURLAttribute(t *testing.T) {
	body := `<div data-video-url="https://media.example.com/v/123.mp4"></div>`

	e := NewExtractor()
	if got := e.First(body); got != "https://media.example.com/v/123.mp4" {
		t.Errorf("First = %q", got)
	}
}

func TestExtractor_RegexCatchesScriptLinks(t *testing.T) {
	// Link lives inside a script string, invisible to the DOM walk.
	body := `<script>var u = 'x'; // href="https://cdn.example.com/v/9.webm"</script>`

	e := NewExtractor()
	if got := e.First(body); got != "https://cdn.example.com/v/9.webm" {
		t.Errorf("First = %q", got)
	}
}

func TestExtractor_Deduplicates(t *testing.T) {
	body := `<a href="https://cdn.example.com/a.mp4">x</a>
		<a href="https://cdn.example.com/a.mp4">y</a>`

	e := NewExtractor()
	if links := e.Extract(body); len(links) != 1 {
		t.Errorf("links = %v, want one entry", links)
	}
}

func TestExtractor_EmptyBody(t *testing.T) {
	e := NewExtractor()
	if links := e.Extract(""); links != nil {
		t.Errorf("links = %v, want nil", links)
	}
}

func TestHasVideoExtension(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/a.mp4", true},
		{"https://cdn.example.com/a.MP4?sig=1", true},
		{"https://cdn.example.com/a.webm", true},
		{"https://cdn.example.com/a.jpg", false},
		{"https://cdn.example.com/page", false},
	}
	for _, tt := range tests {
		if got := HasVideoExtension(tt.url); got != tt.want {
			t.Errorf("HasVideoExtension(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
