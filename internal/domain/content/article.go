package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultAuthor = "No Author"
	DefaultTitle  = "Untitled Article"
)

// Article is a news article, keyed globally by URL.
type Article struct {
	ID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	URL string    `gorm:"column:url;not null;uniqueIndex:idx_article_url" json:"url"`

	Title          string `gorm:"column:title" json:"title"`
	Author         string `gorm:"column:author" json:"author"`
	Content        string `gorm:"column:content" json:"content"`
	TitleCleaned   string `gorm:"column:title_cleaned" json:"title_cleaned"`
	ContentCleaned string `gorm:"column:content_cleaned" json:"content_cleaned"`

	// SentimentStrategy is the news category the article was collected under.
	SentimentStrategy string     `gorm:"column:sentiment_strategy;index" json:"sentiment_strategy,omitempty"`
	PublishedAt       *time.Time `gorm:"column:published_at;index" json:"published_at,omitempty"`
	SourceName        string     `gorm:"column:source_name" json:"source_name,omitempty"`

	RedditPosts []*RedditPost `gorm:"foreignKey:ArticleID;references:ID" json:"reddit_posts,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Article) TableName() string { return "article" }

func (a *Article) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NaturalKey returns the uniqueness key used for dedup.
func (a *Article) NaturalKey() string { return a.URL }
