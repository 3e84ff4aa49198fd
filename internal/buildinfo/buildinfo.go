// Package buildinfo reads the repository manifest shipped with a build.
package buildinfo

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the manifest file inside b2g-distro.
const FileName = "sources.xml"

// Tracked are the projects whose revisions are reported, in order.
var Tracked = []string{"gecko", "gaia"}

// Project is a repository checked out for the build.
type Project struct {
	Path     string `xml:"path,attr"`
	Remote   string `xml:"remote,attr"`
	Name     string `xml:"name,attr"`
	Revision string `xml:"revision,attr"`
}

// Sources is the parsed manifest.
type Sources struct {
	// Remotes maps a remote name to its web viewable base URL.
	Remotes  map[string]string
	Projects []Project
}

type manifest struct {
	Remotes []struct {
		Name  string `xml:"name,attr"`
		Fetch string `xml:"fetch,attr"`
	} `xml:"remote"`
	Projects []Project `xml:"project"`
}

// Parse reads a manifest.
func Parse(r io.Reader) (Sources, error) {
	var m manifest
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return Sources{}, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	s := Sources{Remotes: make(map[string]string, len(m.Remotes)), Projects: m.Projects}
	for _, rem := range m.Remotes {
		s.Remotes[rem.Name] = webURL(rem.Fetch)
	}
	return s, nil
}

// Load parses the manifest of the distro directory.
func Load(distro string) (Sources, error) {
	f, err := os.Open(filepath.Join(distro, FileName))
	if err != nil {
		return Sources{}, err
	}
	defer f.Close()

	return Parse(f)
}

// webURL strips a trailing /releases segment, which git web viewers do not expect.
func webURL(fetch string) string {
	trimmed := strings.TrimSuffix(fetch, "/")
	if strings.HasSuffix(trimmed, "releases") {
		if i := strings.LastIndex(trimmed, "/"); i >= 0 {
			return trimmed[:i]
		}
	}
	return fetch
}

// Links returns the commit diff links of the tracked projects.
func (s Sources) Links() ([]string, error) {
	var links []string
	for _, path := range Tracked {
		for _, p := range s.Projects {
			if p.Path != path {
				continue
			}
			remote, ok := s.Remotes[p.Remote]
			if !ok {
				return links, fmt.Errorf("project %s refers to unknown remote %q", p.Name, p.Remote)
			}
			links = append(links, fmt.Sprintf("%s/?p=releases/%s;a=commitdiff;h=%s", remote, p.Name, p.Revision))
		}
	}
	return links, nil
}
