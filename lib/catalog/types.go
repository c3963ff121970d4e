package catalog

// The read-side tree, reconstructed from the normalized tables. Shapes
// mirror what the frontend consumes.

type Resource struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"original_name"`
	AliasName    string    `json:"alias_name"`
	Pic          string    `json:"pic"`
	Directors    string    `json:"directors"`
	Writers      string    `json:"writers"`
	Actors       string    `json:"actors"`
	Types        string    `json:"types"`
	ReleasedAt   string    `json:"released_at"`
	Summary      string    `json:"summary"`
	Rating       float64   `json:"rating"`
	Channel      string    `json:"channel"`
	Area         string    `json:"area"`
	Favorite     bool      `json:"favorite"`
	Seasons      []*Season `json:"seasons" gorm:"-"`
}

type Season struct {
	ID      int64     `json:"id"`
	Season  int64     `json:"season"`
	Name    string    `json:"name"`
	Formats []*Format `json:"formats"`
}

type Format struct {
	ID       int64     `json:"id"`
	SeasonID int64     `json:"season_id"`
	Format   string    `json:"format"`
	Series   []*Series `json:"series"`
}

type Series struct {
	ID       int64         `json:"id"`
	FormatID int64         `json:"format_id"`
	Episode  int64         `json:"episode"`
	Name     string        `json:"name"`
	Size     string        `json:"size"`
	Files    []*SeriesFile `json:"files"`
}

type SeriesFile struct {
	ID       int64  `json:"id"`
	SeriesID int64  `json:"series_id"`
	Address  string `json:"address"`
	Password string `json:"password"`
	Way      string `json:"way"`
}

// SearchResult is the flat, hierarchy-free row returned by Search.
type SearchResult struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	AliasName    string `json:"alias_name"`
	Channel      string `json:"channel"`
}

// FavoriteEntry is one row of the favorites listing.
type FavoriteEntry struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	AliasName    string `json:"alias_name"`
	Pic          string `json:"pic"`
}
