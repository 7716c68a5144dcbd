// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Endpoint is the address a dev server announced.
type Endpoint struct {
	URL  string `json:"url"`
	Port int    `json:"port,omitempty"` // 0 when the URL has no explicit port
}

// Matcher extracts a candidate URL from a line. The returned text may
// still carry a "Local:" or "url:" label.
type Matcher func(line string) (string, bool)

// RegexpMatcher returns a Matcher reporting the first match of re.
func RegexpMatcher(re *regexp.Regexp) Matcher {
	return func(line string) (string, bool) {
		m := re.FindString(line)
		return m, m != ""
	}
}

var (
	// Vite, Vue CLI and Create React App all print "Local: <url>".
	localPattern     = regexp.MustCompile(`(?i)Local:\s*https?://\S+`)
	urlPattern       = regexp.MustCompile(`(?i)url:\s*https?://\S+`) // Next.js
	localhostPattern = regexp.MustCompile(`(?i)https?://localhost:\d+/?`)
	loopbackPattern  = regexp.MustCompile(`(?i)https?://127\.0\.0\.1:\d+/?`)

	labelPrefix = regexp.MustCompile(`(?i)^(?:Local:\s*|url:\s*)`)
	portPattern = regexp.MustCompile(`:(\d+)/?$`)
)

// DefaultMatchers returns the readiness patterns in priority order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		RegexpMatcher(localPattern),
		RegexpMatcher(urlPattern),
		RegexpMatcher(localhostPattern),
		RegexpMatcher(loopbackPattern),
	}
}

// Detector finds dev-server URLs in output lines. The first matcher that
// reports a URL wins.
type Detector struct {
	matchers []Matcher
}

// NewDetector creates a detector using DefaultMatchers.
func NewDetector() *Detector {
	return &Detector{matchers: DefaultMatchers()}
}

// WithMatchers creates a detector using exactly the given matchers.
func WithMatchers(matchers ...Matcher) *Detector {
	return &Detector{matchers: append([]Matcher(nil), matchers...)}
}

// Prepend returns a copy of d that tries m before its existing matchers.
func (d *Detector) Prepend(m Matcher) *Detector {
	matchers := make([]Matcher, 0, len(d.matchers)+1)
	matchers = append(matchers, m)
	matchers = append(matchers, d.matchers...)
	return &Detector{matchers: matchers}
}

// Detect scans line, after stripping control codes, for a readiness URL.
func (d *Detector) Detect(line string) (Endpoint, bool) {
	clean := StripControlCodes(line)
	for _, m := range d.matchers {
		raw, ok := m(clean)
		if !ok {
			continue
		}
		return normalize(raw), true
	}
	return Endpoint{}, false
}

func normalize(raw string) Endpoint {
	u := strings.TrimSpace(labelPrefix.ReplaceAllString(raw, ""))
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	ep := Endpoint{URL: u}

	portText := ""
	if parsed, err := url.Parse(u); err == nil {
		portText = parsed.Port()
	} else if m := portPattern.FindStringSubmatch(u); m != nil {
		portText = m[1]
	}
	if port, err := strconv.Atoi(portText); err == nil {
		ep.Port = port
	}
	return ep
}

// Announcement is the synthetic log line recorded when an endpoint is found.
func Announcement(ep Endpoint) string {
	return fmt.Sprintf("Dev server available at %s", ep.URL)
}
