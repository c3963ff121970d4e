package models

// Resource is a top-level catalog entry, a show or a movie. Descriptive
// fields and Pic start empty and are filled in by enrichment on first read.
type Resource struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string  `gorm:"not null;default:''" json:"name"`
	OriginalName string  `gorm:"not null;default:''" json:"original_name"`
	AliasName    string  `gorm:"not null;default:''" json:"alias_name"`
	ChannelID    int64   `gorm:"not null;default:0" json:"-"`
	AreaID       int64   `gorm:"not null;default:0" json:"-"`
	Pic          string  `gorm:"not null;default:''" json:"pic"`
	Directors    string  `gorm:"not null;default:''" json:"directors"`
	Writers      string  `gorm:"not null;default:''" json:"writers"`
	Actors       string  `gorm:"not null;default:''" json:"actors"`
	Types        string  `gorm:"not null;default:''" json:"types"`
	ReleasedAt   string  `gorm:"not null;default:''" json:"released_at"`
	Summary      string  `gorm:"not null;default:''" json:"summary"`
	Rating       float64 `gorm:"not null;default:0" json:"rating"`
}

func (Resource) TableName() string { return "resources" }

// Season groups a resource's releases by broadcast season.
type Season struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceID int64  `gorm:"not null;default:0" json:"-"`
	Season     int64  `gorm:"not null;default:0" json:"season"`
	Name       string `gorm:"not null;default:''" json:"name"`
}

func (Season) TableName() string { return "seasons" }

// Format is a resolution/encoding variant under a season.
type Format struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SeasonID int64  `gorm:"not null;default:0" json:"season_id"`
	Format   string `gorm:"not null;default:''" json:"format"`
}

func (Format) TableName() string { return "formats" }

// Series is a single episode under a format.
type Series struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FormatID int64  `gorm:"not null;default:0" json:"format_id"`
	Episode  int64  `gorm:"not null;default:0" json:"episode"`
	Name     string `gorm:"not null;default:''" json:"name"`
	Size     string `gorm:"not null;default:''" json:"size"`
}

func (Series) TableName() string { return "series" }

// File is one downloadable link of an episode.
type File struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SeriesID int64  `gorm:"not null;default:0" json:"series_id"`
	WayID    int64  `gorm:"not null;default:0" json:"-"`
	Address  string `gorm:"not null;default:''" json:"address"`
	Password string `gorm:"not null;default:''" json:"password"`
}

func (File) TableName() string { return "files" }

// Area, Channel and Way are deduplicated name lookup tables referenced by
// resources and files.
type Area struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;default:''" json:"name"`
}

func (Area) TableName() string { return "areas" }

type Channel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;default:''" json:"name"`
}

func (Channel) TableName() string { return "channels" }

type Way struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;default:''" json:"name"`
}

func (Way) TableName() string { return "ways" }

// Favorite marks a resource as favorited; presence of a row is the flag.
type Favorite struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceID int64 `gorm:"not null;default:0" json:"resource_id"`
}

func (Favorite) TableName() string { return "favorites" }
