package discovery

import "regexp"

// Quality is an ordinal tier derived from resolution markers in a release
// title. Unknown sorts below SD but is never filtered out: an unmarked title
// says nothing about its resolution, so it is not penalized.
type Quality int

const (
	QualityUnknown Quality = iota - 1
	QualitySD              // 480p
	QualityHD              // 720p
	QualityFullHD          // 1080p
	QualityUltraHD         // 2160p
)

func (q Quality) String() string {
	switch q {
	case QualityUltraHD:
		return "2160p"
	case QualityFullHD:
		return "1080p"
	case QualityHD:
		return "720p"
	case QualitySD:
		return "480p"
	default:
		return "unknown"
	}
}

// ParseQuality maps a configured minimum-quality string onto a tier.
// Unrecognized values fall back to FullHD, the historical default.
func ParseQuality(s string) Quality {
	switch s {
	case "2160p", "4k", "4K", "uhd", "UHD":
		return QualityUltraHD
	case "1080p":
		return QualityFullHD
	case "720p":
		return QualityHD
	case "480p":
		return QualitySD
	default:
		return QualityFullHD
	}
}

// Markers are matched highest tier first so "2160p UHD" never downgrades to
// a lower tier that also happens to appear in the title.
var qualityMarkers = []struct {
	quality Quality
	pattern *regexp.Regexp
}{
	{QualityUltraHD, regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`)},
	{QualityFullHD, regexp.MustCompile(`(?i)\b(1080p|fullhd|fhd|1920x1080)\b`)},
	{QualityHD, regexp.MustCompile(`(?i)\b(720p|hd|1280x720)\b`)},
	{QualitySD, regexp.MustCompile(`(?i)\b(480p|sd|dvd)\b`)},
}

// DetectQuality extracts a quality tier from a free-text release title.
func DetectQuality(title string) Quality {
	for _, marker := range qualityMarkers {
		if marker.pattern.MatchString(title) {
			return marker.quality
		}
	}
	return QualityUnknown
}
