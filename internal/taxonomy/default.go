package taxonomy

// Default returns the field table observed on the service's track records.
func Default() *Taxonomy {
	return MustNew(DefaultFields()...)
}

// DefaultFields returns a fresh copy of the default table, for callers that want to extend it.
func DefaultFields() []Field {
	return []Field{
		{Name: "name", Category: Mutable, Kind: String},
		{Name: "artist", Category: Mutable, Kind: String},
		{Name: "album", Category: Mutable, Kind: String},
		{Name: "albumArtist", Category: Mutable, Kind: String},
		{Name: "composer", Category: Mutable, Kind: String},
		{Name: "genre", Category: Mutable, Kind: String},
		{Name: "year", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 1900, Max: 2100}},
		{Name: "track", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 1, Max: 99}},
		{Name: "totalTracks", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 1, Max: 99}},
		{Name: "disc", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 1, Max: 9}},
		{Name: "totalDiscs", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 1, Max: 9}},
		{Name: "rating", Category: Mutable, Kind: Int, Bounds: &Bounds{Min: 0, Max: 5}},

		{Name: "id", Category: Frozen, Kind: String},
		{Name: "type", Category: Frozen, Kind: Int},
		{Name: "deleted", Category: Frozen, Kind: Bool},
		{Name: "creationDate", Category: Frozen, Kind: Int},
		{Name: "beatsPerMinute", Category: Frozen, Kind: Int},
		{Name: "url", Category: Frozen, Kind: String},
		{Name: "comment", Category: Frozen, Kind: String},

		{Name: "title", Category: Dependent, Kind: String, Master: "name", Derive: Identity},
		{Name: "titleNorm", Category: Dependent, Kind: String, Master: "name", Derive: Lowercase},
		{Name: "artistNorm", Category: Dependent, Kind: String, Master: "artist", Derive: Lowercase},
		{Name: "albumNorm", Category: Dependent, Kind: String, Master: "album", Derive: Lowercase},
		{Name: "albumArtistNorm", Category: Dependent, Kind: String, Master: "albumArtist", Derive: Lowercase},

		{Name: "playCount", Category: ServerOwned, Kind: Int},
		{Name: "lastPlayed", Category: ServerOwned, Kind: Int},
		{Name: "subjectToCuration", Category: ServerOwned, Kind: Bool},
		{Name: "matchedId", Category: ServerOwned, Kind: String},

		{Name: "albumArtUrl", Category: Limited, Kind: String},
		{Name: "durationMillis", Category: Limited, Kind: Int},
	}
}
