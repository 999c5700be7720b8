// Package source defines the domain models and interfaces for mirror discovery and retrieval.
package source

import "fmt"

// Mirror is one candidate delivery source for a piece of content. It is
// immutable once discovered and identified by its manifest reference.
type Mirror struct {
	ID string `json:"id"`
	// Fingerprint is the canonical info-hash of the descriptor.
	Fingerprint string `json:"fingerprint"`
	Language    string `json:"language"`
	Quality     string `json:"quality"`
	Seeds       int    `json:"seeds"`
	Peers       int    `json:"peers"`
	// ManifestRef is the digest token parsed from the descriptor.
	ManifestRef string `json:"manifest_ref"`
	// DisplayName is the magnet "dn" parameter, if any.
	DisplayName string `json:"display_name,omitempty"`
	Trackers    int    `json:"trackers,omitempty"`
}

func (m Mirror) String() string {
	return fmt.Sprintf("%s/%s (%s)", m.Language, m.Quality, m.ManifestRef)
}
