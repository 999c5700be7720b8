package provider

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/anisan-cli/anistream/source"
)

var digestPattern = regexp.MustCompile(`xt=urn:btih:([a-zA-Z0-9]+)`)

// descriptor is the parsed form of a magnet-style descriptor string.
type descriptor struct {
	ref         string
	fingerprint string
	displayName string
	trackers    int
}

// parseDescriptor extracts the manifest reference from raw. The digest
// token is mandatory; the full magnet parse only enriches the result.
func parseDescriptor(raw string) (descriptor, error) {
	match := digestPattern.FindStringSubmatch(raw)
	if match == nil {
		return descriptor{}, fmt.Errorf("%w: descriptor has no digest token", source.ErrSourceUnavailable)
	}

	d := descriptor{
		ref:         match[1],
		fingerprint: strings.ToLower(match[1]),
	}

	if magnet, err := metainfo.ParseMagnetUri(raw); err == nil {
		d.fingerprint = magnet.InfoHash.HexString()
		d.displayName = magnet.DisplayName
		d.trackers = len(magnet.Trackers)
	}

	return d, nil
}
