package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RedditPost struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RedditID string    `gorm:"column:reddit_id;not null;uniqueIndex:idx_reddit_post_reddit_id" json:"reddit_id"`

	Subreddit         string     `gorm:"column:subreddit;not null;index" json:"subreddit"`
	Author            string     `gorm:"column:author" json:"author"`
	Title             string     `gorm:"column:title" json:"title"`
	BodyText          string     `gorm:"column:body_text" json:"body_text"`
	Score             int        `gorm:"column:score" json:"score"`
	NumberOfComments  int        `gorm:"column:number_of_comments" json:"number_of_comments"`
	IsTextPost        bool       `gorm:"column:is_text_post;not null;default:true" json:"is_text_post"`
	SubredditCategory string     `gorm:"column:subreddit_category" json:"subreddit_category,omitempty"`
	UpvoteRatio       float64    `gorm:"column:upvote_ratio" json:"upvote_ratio"`
	PublishedAt       *time.Time `gorm:"column:published_at;index" json:"published_at,omitempty"`
	RedditPostURL     string     `gorm:"column:reddit_post_url" json:"reddit_post_url"`

	ArticleID *uuid.UUID `gorm:"type:uuid;column:article_id;index" json:"article_id,omitempty"`
	Article   *Article   `gorm:"foreignKey:ArticleID;references:ID;constraint:OnDelete:SET NULL" json:"article,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (RedditPost) TableName() string { return "reddit_post" }

func (p *RedditPost) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *RedditPost) NaturalKey() string { return p.RedditID }
