package classification

// DefaultPatterns returns the default merchant category patterns. They are
// deliberately coarse: duplicate detection only needs "these two services
// do the same kind of thing", not a full taxonomy.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Category:   "Streaming",
			Regex:      `\b(NETFLIX|HULU|DISNEY|HBO|MAX\b|PARAMOUNT|PEACOCK|CRUNCHYROLL|YOUTUBE\s*PREMIUM)\b`,
			Priority:   100,
			Confidence: 0.95,
		},
		{
			Category:   "Music",
			Regex:      `\b(SPOTIFY|APPLE\s*MUSIC|TIDAL|PANDORA|DEEZER|SIRIUSXM)\b`,
			Priority:   100,
			Confidence: 0.95,
		},
		{
			Category:   "Cloud Storage",
			Regex:      `\b(DROPBOX|ICLOUD|GOOGLE\s*(ONE|STORAGE)|ONEDRIVE|BACKBLAZE)\b`,
			Priority:   95,
			Confidence: 0.90,
		},
		{
			Category:   "Fitness",
			Regex:      `\b(GYM|FITNESS|PELOTON|STRAVA|CROSSFIT|YMCA|PLANET\s*FIT)\b`,
			Priority:   90,
			Confidence: 0.85,
		},
		{
			Category:   "News",
			Regex:      `\b(NYTIMES|NY\s*TIMES|WSJ|WASHINGTON\s*POST|ECONOMIST|GUARDIAN|SUBSTACK)\b`,
			Priority:   90,
			Confidence: 0.85,
		},
		{
			Category:   "Software",
			Regex:      `\b(ADOBE|GITHUB|JETBRAINS|MICROSOFT\s*365|NOTION|SLACK|ZOOM|1PASSWORD)\b`,
			Priority:   85,
			Confidence: 0.85,
		},
		{
			Category:   "Gaming",
			Regex:      `\b(XBOX|PLAYSTATION|NINTENDO|STEAM|GAME\s*PASS|EA\s*PLAY)\b`,
			Priority:   85,
			Confidence: 0.85,
		},
		{
			Category:   "Meal Kits",
			Regex:      `\b(HELLOFRESH|BLUE\s*APRON|FACTOR|HOME\s*CHEF)\b`,
			Priority:   80,
			Confidence: 0.85,
		},
	}
}
