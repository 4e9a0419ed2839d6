// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const maxFilenameLen = 100

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// deriveFilename picks a name for a downloaded document: the
// Content-Disposition filename, else the last URL path segment, else the
// host name. The result is sanitized.
func deriveFilename(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if fn := params["filename"]; fn != "" {
				if name := sanitizeFilename(fn); name != "" {
					return name
				}
			}
		}
	}
	if u != nil {
		if seg := path.Base(u.Path); seg != "/" && seg != "." && seg != "" {
			if name := sanitizeFilename(seg); name != "" {
				return name
			}
		}
		if name := sanitizeFilename(u.Hostname()); name != "" {
			return name
		}
	}
	return "document"
}

// sanitizeFilename keeps the base name, replaces characters outside
// [A-Za-z0-9._-] with underscores, and trims leading dots so the name can
// never address a parent or hidden path.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "/" || name == "." || name == ".." {
		return ""
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")
	name = strings.TrimRight(name, "_")
	if len(name) > maxFilenameLen {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxFilenameLen-len(ext)] + ext
	}
	return name
}

// withExtension replaces name's extension with ext.
func withExtension(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

// pageFilename names the text artifact of an HTML page after its host and
// path.
func pageFilename(u *url.URL) string {
	base := u.Hostname() + strings.TrimSuffix(u.Path, "/")
	name := sanitizeFilename(strings.ReplaceAll(base, "/", "_"))
	if name == "" {
		name = "page"
	}
	return name + ".txt"
}
