package content

// mediaDetailsResponse is the wire shape of a resolved title or episode.
type mediaDetailsResponse struct {
	ID         string `json:"id"`
	ShowID     string `json:"showId,omitempty"`
	Title      string `json:"title"`
	VideoURL   string `json:"videoUrl"`
	DurationMs int64  `json:"durationMs"`

	Season  int `json:"seasonNumber,omitempty"`
	Episode int `json:"episodeNumber,omitempty"`

	WatchHistory *watchHistoryDTO `json:"watchHistory,omitempty"`

	Captions []captionTrackDTO `json:"captions,omitempty"`

	Backdrop *backdropDTO `json:"backdrop,omitempty"`
}

type watchHistoryDTO struct {
	PositionSeconds float64 `json:"positionSeconds"`
	Fraction        float64 `json:"fraction,omitempty"`
}

type captionTrackDTO struct {
	Label    string `json:"label"`
	Language string `json:"language,omitempty"`
	URI      string `json:"uri"`
}

type backdropDTO struct {
	URL      string `json:"url"`
	Blurhash string `json:"blurhash,omitempty"`
}

// tvDetailsResponse is the wire shape of a season's episode list.
type tvDetailsResponse struct {
	Episodes []episodeDTO `json:"episodes"`
}

type episodeDTO struct {
	Number       int              `json:"episodeNumber"`
	Title        string           `json:"title"`
	DurationMs   int64            `json:"durationMs"`
	ThumbURL     string           `json:"thumbUrl,omitempty"`
	WatchHistory *watchHistoryDTO `json:"watchHistory,omitempty"`
}
