package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize formats a byte count for display
// Examples: 512 -> "512 B", 1536 -> "1.5 KiB", 10485760 -> "10 MiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatAge formats how long ago t was, relative to now
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "---"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// ProviderLabel returns the display name of a provider id
func ProviderLabel(provider string) string {
	if provider == "" {
		return "Unknown"
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}

// FormatAttribution formats the photo credit line
// Example: "Photo by Ansel Adams on Unsplash"
func FormatAttribution(photographer, provider string) string {
	if photographer == "" {
		return "Photo on " + ProviderLabel(provider)
	}
	return fmt.Sprintf("Photo by %s on %s", photographer, ProviderLabel(provider))
}

// FormatFallbackHint explains why a bundled photo is shown instead of a live one
func FormatFallbackHint(errorKind, provider string) string {
	switch errorKind {
	case "":
		return ""
	case "no-key":
		return fmt.Sprintf("No %s API key set. Run: tabr key set %s <key>", ProviderLabel(provider), provider)
	default:
		return fmt.Sprintf("%s is unavailable, showing a bundled photo", ProviderLabel(provider))
	}
}

// FormatFavoriteLine formats a saved photo as a single line for display
// Example: "https://images.unsplash.com/photo-1...  Unsplash  3 days ago"
func FormatFavoriteLine(url, source string, savedAt, now time.Time, maxURLLen int) string {
	if maxURLLen > 3 && len(url) > maxURLLen {
		url = url[:maxURLLen-3] + "..."
	}

	urlFmt := fmt.Sprintf("%%-%ds", maxURLLen)
	return fmt.Sprintf("%s  %-8s  %s", fmt.Sprintf(urlFmt, url), ProviderLabel(source), FormatAge(savedAt, now))
}
