package domain

// Article is the record persisted for one ingested feed item.
// The article title is the key it is stored under, so it is not a field here.
type Article struct {
	URL           string `json:"url" bson:"url"`
	PublishedDate string `json:"published_date" bson:"published_date"`
	Text          string `json:"text" bson:"text"`
}

// FeedItem represents one entry read from a syndication feed
type FeedItem struct {
	Title     string // Used as the article key
	Link      string // URL of the article page
	Published string // Feed-native publication timestamp, not parsed
}
