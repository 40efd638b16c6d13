package models

import "gorm.io/gorm"

// VideoStatus represents the lifecycle status of a video.
type VideoStatus string

const (
	// VideoStatusProcessing indicates the source is still in the pipeline.
	VideoStatusProcessing VideoStatus = "processing"
	// VideoStatusReady indicates all renditions are published and playable.
	VideoStatusReady VideoStatus = "ready"
	// VideoStatusFailed indicates processing failed permanently.
	VideoStatusFailed VideoStatus = "failed"
)

// Video is a published (or in-flight) media item. Renditions, thumbnail and
// poster live under final storage keyed by Slug.
type Video struct {
	BaseModel

	// Slug is the unique URL-safe identifier, shared with the upload job.
	Slug string `gorm:"not null;size:255;uniqueIndex" json:"slug"`

	// Title is the display title.
	Title string `gorm:"not null;size:255" json:"title"`

	// Description is an optional free-form description.
	Description string `gorm:"size:4096" json:"description,omitempty"`

	// IsPublic controls listing visibility.
	IsPublic bool `gorm:"default:false" json:"is_public"`

	// DurationMs is the source duration in milliseconds, from probing.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Width and Height are the source dimensions in pixels.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Framerate is the source frame rate in frames per second.
	Framerate float64 `json:"framerate,omitempty"`

	// Bitrate is the source overall bitrate in bits per second.
	Bitrate int64 `json:"bitrate,omitempty"`

	// VideoCodec and AudioCodec are the source codec names from probing.
	VideoCodec string `gorm:"size:64" json:"video_codec,omitempty"`
	AudioCodec string `gorm:"size:64" json:"audio_codec,omitempty"`

	// ThumbnailURL and PosterURL point at the published still frames.
	ThumbnailURL string `gorm:"size:1024" json:"thumbnail_url,omitempty"`
	PosterURL    string `gorm:"size:1024" json:"poster_url,omitempty"`

	// Status indicates whether the video is playable.
	Status VideoStatus `gorm:"not null;default:'processing';size:20;index" json:"status"`

	// Variants are the transcoded quality renditions.
	Variants []QualityVariant `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

// TableName returns the table name for Video.
func (Video) TableName() string {
	return "videos"
}

// IsReady returns true when the video is playable.
func (v *Video) IsReady() bool {
	return v.Status == VideoStatusReady
}

// Validate performs basic validation on the video.
func (v *Video) Validate() error {
	if v.Title == "" {
		return ErrTitleRequired
	}
	if v.Slug == "" {
		return ErrSlugRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the video and generates its ULID.
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if err := v.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return v.Validate()
}

// QualityVariant is one transcoded rendition of a video.
type QualityVariant struct {
	BaseModel

	// VideoID is the owning video.
	VideoID ULID `gorm:"not null;type:varchar(26);index" json:"video_id"`

	// Name is the ladder rung name, e.g. "720p".
	Name string `gorm:"not null;size:32" json:"name"`

	// Width and Height are the encoded dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// VideoBitrate and AudioBitrate are the target bitrates in kbit/s.
	VideoBitrate int `json:"video_bitrate"`
	AudioBitrate int `json:"audio_bitrate"`

	// ManifestPath is the playlist path relative to the video's final dir.
	ManifestPath string `gorm:"size:1024" json:"manifest_path"`

	// SegmentCount is the number of media segments in the playlist.
	SegmentCount int `json:"segment_count"`
}

// TableName returns the table name for QualityVariant.
func (QualityVariant) TableName() string {
	return "quality_variants"
}

// Validate performs basic validation on the variant.
func (q *QualityVariant) Validate() error {
	if q.VideoID.IsZero() {
		return ErrVideoIDRequired
	}
	if q.Name == "" {
		return ErrVariantNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the variant and generates its ULID.
func (q *QualityVariant) BeforeCreate(tx *gorm.DB) error {
	if err := q.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return q.Validate()
}
