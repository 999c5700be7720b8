// Package history remembers which mirror last resolved for each content id.
package history

import (
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

var cacher = gache.New[map[string]*Record](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every stored record keyed by content id.
func Get() (map[string]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Record), nil
	}
	return cached, nil
}

// List returns the stored records, most recent first.
func List() ([]*Record, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	records := lo.Values(saved)
	slices.SortFunc(records, func(a, b *Record) int {
		return b.ResolvedAt.Compare(a.ResolvedAt)
	})
	return records, nil
}

// Last returns the record for contentID, if any.
func Last(contentID string) (*Record, bool, error) {
	saved, err := Get()
	if err != nil {
		return nil, false, err
	}
	record, ok := saved[contentID]
	return record, ok, nil
}

// Save stores record, replacing the previous one for the same content id.
func Save(record Record) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	if existing, ok := saved[record.ContentID]; ok {
		record.Resolutions = existing.Resolutions
	}
	record.Resolutions++

	saved[record.ContentID] = &record
	return cacher.Set(saved)
}

// Remove deletes the record for contentID.
func Remove(contentID string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, contentID)
	return cacher.Set(saved)
}

// Clear deletes every record.
func Clear() error {
	return cacher.Set(make(map[string]*Record))
}
