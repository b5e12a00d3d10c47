// Package identity derives stable listing identifiers so repeated
// scrapes of the same property collapse into one record.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"bds_scraper/models"
)

// Key hashes the identifying triple of a listing. The same triple
// always yields the same key, so re-scraped listings overwrite rather
// than duplicate.
func Key(link, title, address string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s", link, title, address)))
	return hex.EncodeToString(sum[:])
}

// KeyFor stamps the listing's UniqueID from its current fields and
// returns it.
func KeyFor(l *models.ListingRecord) string {
	l.UniqueID = Key(l.Link, l.Title, l.Address)
	return l.UniqueID
}

// Dedupe collapses listings that share a unique ID. The last
// occurrence wins, carrying the freshest field values, while the slice
// keeps the order in which IDs first appeared. Listings without an ID
// are keyed in place.
func Dedupe(listings []*models.ListingRecord) []*models.ListingRecord {
	index := make(map[string]int, len(listings))
	out := make([]*models.ListingRecord, 0, len(listings))

	for _, l := range listings {
		if l.UniqueID == "" {
			KeyFor(l)
		}
		if pos, seen := index[l.UniqueID]; seen {
			out[pos] = l
			continue
		}
		index[l.UniqueID] = len(out)
		out = append(out, l)
	}
	return out
}
