package fortune

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

type ReadingStatus string

const (
	StatusPending    ReadingStatus = "pending"
	StatusProcessing ReadingStatus = "processing"
	StatusCompleted  ReadingStatus = "completed"
	StatusFailed     ReadingStatus = "failed"
)

type InputType string

const (
	InputText      InputType = "text"
	InputImage     InputType = "image"
	InputTextImage InputType = "text_image"
)

// Feature is a configured fortune-telling variant: a prompt template plus
// model parameters. Read-mostly reference data.
type Feature struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	FeatureType string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"feature_type"`
	InputType   InputType `gorm:"type:varchar(20);not null" json:"input_type"`
	Description string    `gorm:"type:text" json:"description"`

	// PromptTemplate uses {user_input} as the substitution placeholder.
	PromptTemplate string `gorm:"type:text;not null" json:"-"`

	ModelName   string  `gorm:"type:varchar(100);not null" json:"-"`
	MaxTokens   int     `gorm:"default:1000" json:"-"`
	Temperature float64 `gorm:"default:0.7" json:"-"`

	CreditCost int  `gorm:"default:1" json:"credit_cost"`
	IsActive   bool `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Feature) TableName() string { return "fortune_features" }

func (f *Feature) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// Reading is a single fortune request. After creation the processor is the
// sole mutator of status, interpretation and error fields.
type Reading struct {
	ID        string `gorm:"primaryKey;size:26" json:"id"` // ULID length
	UserID    uint64 `gorm:"index;not null" json:"-"`
	FeatureID string `gorm:"type:varchar(36);index;not null" json:"-"`
	Feature   *Feature `gorm:"foreignKey:FeatureID" json:"feature,omitempty"`

	TextInput string `gorm:"type:text" json:"text_input,omitempty"`
	ImagePath string `gorm:"type:varchar(255)" json:"image,omitempty"`
	Language  string `gorm:"type:varchar(8);default:en" json:"language"`

	Interpretation string `gorm:"type:text" json:"interpretation,omitempty"`

	Status       ReadingStatus `gorm:"type:varchar(20);index;not null;default:pending" json:"status"`
	ErrorMessage string        `gorm:"type:text" json:"error_message,omitempty"`

	ModelUsed      string  `gorm:"type:varchar(100)" json:"model_used,omitempty"`
	TokensUsed     int     `gorm:"default:0" json:"tokens_used"`
	ProcessingTime float64 `gorm:"default:0" json:"processing_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Reading) TableName() string { return "readings" }

// ReadingHistory links one reading to the user's feedback. One row per
// reading; repeat feedback overwrites in place.
type ReadingHistory struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64  `gorm:"index;not null" json:"-"`
	FeatureID string  `gorm:"type:varchar(36);index;not null" json:"-"`
	Feature   *Feature `gorm:"foreignKey:FeatureID" json:"feature,omitempty"`
	ReadingID string  `gorm:"size:26;uniqueIndex;not null" json:"reading_id"`

	Rating   *int   `json:"rating"`
	Feedback string `gorm:"type:text" json:"feedback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (ReadingHistory) TableName() string { return "reading_history" }

func NewReadingID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
