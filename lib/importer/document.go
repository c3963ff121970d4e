package importer

import "strconv"

// Record is one denormalized show document from the staging dataset's
// single-table dump: {status, info, data:{info, list}}.
type Record struct {
	Status int    `json:"status"`
	Info   string `json:"info"`
	Data   Data   `json:"data"`
}

type Data struct {
	Info Info        `json:"info"`
	List []SeasonDoc `json:"list"`
}

// Info carries the show-level fields. Channel and Area feed the lookup
// tables; the rest of the dump's fields are not imported.
type Info struct {
	CnName    string `json:"cnname"`
	EnName    string `json:"enname"`
	AliasName string `json:"aliasname"`
	Channel   string `json:"channel"`
	Area      string `json:"area"`
}

// SeasonDoc groups episodes by format label. Items is keyed by entries of
// Formats; labels present in Items but absent from Formats are ignored.
type SeasonDoc struct {
	SeasonNum string            `json:"season_num"`
	SeasonCn  string            `json:"season_cn"`
	Formats   []string          `json:"formats"`
	Items     map[string][]Item `json:"items"`
}

type Item struct {
	Episode string    `json:"episode"`
	Name    string    `json:"name"`
	Size    string    `json:"size"`
	Files   []FileDoc `json:"files"`
}

type FileDoc struct {
	WayCn    string `json:"way_cn"`
	Address  string `json:"address"`
	Password string `json:"passwd"`
}

// parseNumber reads the dump's stringly-typed numeric fields; anything
// unparseable becomes 0, matching the store's column default.
func parseNumber(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
