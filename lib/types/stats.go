package types

// StatsData summarizes the catalog store. Initialized mirrors the
// first-run check: a catalog with zero resources has not been imported yet.
type StatsData struct {
	Resources   int64 `json:"resources"`
	Seasons     int64 `json:"seasons"`
	Formats     int64 `json:"formats"`
	Series      int64 `json:"series"`
	Files       int64 `json:"files"`
	Favorites   int64 `json:"favorites"`
	Initialized bool  `json:"initialized"`
}
