package geo

import (
	"strings"
)

// base32 is the geohash character set. 'a', 'i', 'l' and 'o' are excluded.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// DefaultGeohashPrecision gives cells of roughly 1.2 km x 0.6 km.
const DefaultGeohashPrecision = 6

var base32Map = map[byte]int{}

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// Encode converts latitude and longitude to a geohash string with the given
// precision (clamped to 1..12, 0 or less selects DefaultGeohashPrecision).
//
// Bits alternate between longitude (even) and latitude (odd); each step
// bisects the remaining range and sets the bit when the value is in the
// upper half. Every 5 bits become one base32 character.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = DefaultGeohashPrecision
	}
	if precision > 12 {
		precision = 12
	}

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// ValidGeohash reports whether hash is a non-empty geohash of at most 12
// characters from the geohash alphabet. Upper case is accepted.
func ValidGeohash(hash string) bool {
	if hash == "" || len(hash) > 12 {
		return false
	}
	for i := 0; i < len(hash); i++ {
		if _, ok := base32Map[lower(hash[i])]; !ok {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// Decode returns the center of the geohash cell. Upper case is accepted;
// characters outside the geohash alphabet are skipped, so check input with
// ValidGeohash first.
func Decode(hash string) (lat, lon float64) {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[lower(hash[i])]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLon + maxLon) / 2
				if bit == 1 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}

	lat = (minLat + maxLat) / 2
	lon = (minLon + maxLon) / 2
	return
}
