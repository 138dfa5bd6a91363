// Package discovery yields backend node candidates for a relay.
package discovery

import "strings"

// Selector starts a fresh candidate iteration for every relay.
type Selector interface {
	Init() Candidates
}

// Candidates walks an ordered list of backend base URLs.
type Candidates interface {
	// URL returns the current candidate, or "" when none is left.
	URL() string
	// Fail marks the current candidate as failed and advances.
	Fail()
}

type listCandidates struct {
	urls   []string
	pos    int
	onFail func(url string)
}

func (c *listCandidates) URL() string {
	if c.pos >= len(c.urls) {
		return ""
	}
	return c.urls[c.pos]
}

func (c *listCandidates) Fail() {
	if c.pos >= len(c.urls) {
		return
	}
	if c.onFail != nil {
		c.onFail(c.urls[c.pos])
	}
	c.pos++
}

// Static hands out the configured backends in order.
type Static struct {
	urls []string
}

func NewStatic(urls []string) *Static {
	return &Static{urls: normalize(urls)}
}

func (s *Static) Init() Candidates {
	return &listCandidates{urls: s.urls}
}

// ParseList splits a comma separated backend list.
func ParseList(s string) []string {
	return normalize(strings.Split(s, ","))
}

func normalize(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
