package main

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"
)

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type sitemapIndex struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", s.baseURL)
}

// handleSitemap renders a sitemap from the public pages: the lawyer directory
// and published blog posts.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	idx := sitemapIndex{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: s.baseURL + "/"},
			{Loc: s.baseURL + "/lawyers"},
			{Loc: s.baseURL + "/blog"},
		},
	}

	profiles, err := s.lawyerService.List(r.Context(), "", 100)
	if err != nil {
		writeUnexpected(w, "sitemap lawyers", err)
		return
	}
	for _, p := range profiles {
		idx.URLs = append(idx.URLs, sitemapURL{
			Loc:     fmt.Sprintf("%s/lawyers/%s", s.baseURL, p.ID),
			LastMod: p.UpdatedAt.Format(time.RFC3339),
		})
	}

	posts, err := s.blogService.ListPublished(r.Context(), 100)
	if err != nil {
		writeUnexpected(w, "sitemap blog", err)
		return
	}
	for _, post := range posts {
		u := sitemapURL{Loc: fmt.Sprintf("%s/blog/%s", s.baseURL, post.Slug)}
		if post.PublishedAt != nil {
			u.LastMod = post.PublishedAt.Format(time.RFC3339)
		}
		idx.URLs = append(idx.URLs, u)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	fmt.Fprint(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(idx)
}
