package normalize

import "strings"

// hcmcDistricts maps lowercase district spellings, with and without
// diacritics, to their canonical names. Numbered districts go 1-12;
// the rest are the named urban and suburban districts of Ho Chi Minh
// City.
var hcmcDistricts = map[string]string{
	"quận 1": "Quận 1", "quan 1": "Quận 1",
	"quận 2": "Quận 2", "quan 2": "Quận 2",
	"quận 3": "Quận 3", "quan 3": "Quận 3",
	"quận 4": "Quận 4", "quan 4": "Quận 4",
	"quận 5": "Quận 5", "quan 5": "Quận 5",
	"quận 6": "Quận 6", "quan 6": "Quận 6",
	"quận 7": "Quận 7", "quan 7": "Quận 7",
	"quận 8": "Quận 8", "quan 8": "Quận 8",
	"quận 9": "Quận 9", "quan 9": "Quận 9",
	"quận 10": "Quận 10", "quan 10": "Quận 10",
	"quận 11": "Quận 11", "quan 11": "Quận 11",
	"quận 12": "Quận 12", "quan 12": "Quận 12",
	"thủ đức": "Thủ Đức", "thu duc": "Thủ Đức",
	"bình thạnh": "Bình Thạnh", "binh thanh": "Bình Thạnh",
	"phú nhuận": "Phú Nhuận", "phu nhuan": "Phú Nhuận",
	"tân bình": "Tân Bình", "tan binh": "Tân Bình",
	"tân phú": "Tân Phú", "tan phu": "Tân Phú",
	"gò vấp": "Gò Vấp", "go vap": "Gò Vấp",
	"bình tân": "Bình Tân", "binh tan": "Bình Tân",
	"hóc môn": "Hóc Môn", "hoc mon": "Hóc Môn",
	"củ chi": "Củ Chi", "cu chi": "Củ Chi",
	"cần giờ": "Cần Giờ", "can gio": "Cần Giờ",
	"nhà bè": "Nhà Bè", "nha be": "Nhà Bè",
}

// districtOrder fixes the scan order so "quận 11" and "quận 12" are
// tried before "quận 1", which is a substring of both.
var districtOrder = buildDistrictOrder()

func buildDistrictOrder() []string {
	keys := make([]string, 0, len(hcmcDistricts))
	for k := range hcmcDistricts {
		keys = append(keys, k)
	}
	// Longest key first.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && len(keys[j]) > len(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// District finds a Ho Chi Minh City district mentioned in an address or
// title and returns its canonical name, or "" when none matches.
func District(raw string) string {
	lower := strings.ToLower(raw)
	for _, key := range districtOrder {
		if strings.Contains(lower, key) {
			return hcmcDistricts[key]
		}
	}
	return ""
}
