package fortune

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type seedFeature struct {
	Name        string
	FeatureType string
	InputType   InputType
	Description string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
	CreditCost  int
}

var defaultFeatures = []seedFeature{
	{
		Name:        "Coffee Fortune Reading",
		FeatureType: "coffee_fortune",
		InputType:   InputImage,
		Description: "Upload a photo of your coffee cup and receive a mystical fortune reading based on the patterns in your coffee grounds.",
		Prompt: `You are an experienced coffee fortune teller (tasseographer).
Analyze the patterns, shapes, and symbols you see in this coffee cup image.

Provide a detailed and engaging fortune reading that includes:
1. **What I See**: Describe 3-4 specific patterns or symbols you observe in the cup
2. **Love & Relationships**: Insights about romantic life and connections
3. **Career & Finance**: Guidance about work and financial matters
4. **Health & Well-being**: Advice about physical and mental health
5. **Near Future**: What the next few weeks may bring
6. **Guidance**: A meaningful piece of advice or warning

Be creative, mystical, and positive while maintaining an entertaining tone.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1200,
		Temperature: 0.8,
		CreditCost:  2,
	},
	{
		Name:        "Feng Shui Room Analysis",
		FeatureType: "feng_shui",
		InputType:   InputImage,
		Description: "Upload a photo of any room in your home and receive personalized Feng Shui advice to improve energy flow and harmony.",
		Prompt: `You are a Feng Shui master with deep knowledge of energy flow (Chi) and spatial harmony.

Analyze this room image and provide comprehensive Feng Shui guidance:
1. **Overall Energy Assessment**: Describe the current energy flow in this space
2. **Positive Elements**: Identify what's working well
3. **Areas for Improvement**: Point out blocking or negative energy patterns
4. **Specific Recommendations**: Furniture placement, colors, element balance, lighting
5. **Quick Wins**: 3-5 easy changes that can be implemented immediately

Be practical, specific, and encouraging.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1500,
		Temperature: 0.7,
		CreditCost:  2,
	},
	{
		Name:        "Dream Interpretation",
		FeatureType: "dream_interpretation",
		InputType:   InputText,
		Description: "Share your dream and receive an in-depth interpretation revealing hidden meanings and insights.",
		Prompt: `You are an expert dream interpreter with knowledge of symbolism, psychology, and mystical traditions.

The dreamer shares: {user_input}

Provide a comprehensive dream interpretation:
1. **Dream Summary**: Briefly recap the key elements
2. **Main Symbols**: Identify and explain 3-5 significant symbols or themes
3. **Emotional Undercurrents**: What does this dream reveal?
4. **Spiritual/Mystical Significance**: Deeper meanings
5. **Guidance**: Practical advice based on the dream's message

Be thoughtful, insightful, and respectful.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1200,
		Temperature: 0.75,
		CreditCost:  1,
	},
	{
		Name:        "Birthdate Horoscope",
		FeatureType: "birthdate_horoscope",
		InputType:   InputText,
		Description: "Enter your birthdate to receive personalized insights about your personality, strengths, and life path.",
		Prompt: `You are an expert astrologer and numerologist.

Birthdate provided: {user_input}

Create a detailed personalized reading based on this birthdate:
1. **Sun Sign Overview**: Key traits and characteristics
2. **Life Path Number**: Calculate and explain the numerological significance
3. **Personality Strengths**: Natural talents and positive qualities
4. **Career Inclinations**: Suitable career paths and work styles
5. **Current Period Guidance**: Insights for the present life phase

Be personalized, positive, and insightful.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1400,
		Temperature: 0.7,
		CreditCost:  1,
	},
	{
		Name:        "Tarot Reading",
		FeatureType: "tarot",
		InputType:   InputText,
		Description: "Ask a question and receive guidance through a virtual three-card tarot reading.",
		Prompt: `You are an experienced tarot reader with intuitive wisdom.

Question asked: {user_input}

Perform a three-card reading (Past-Present-Future spread):
1. **Card Draw**: Select three cards that resonate with this question
2. **Detailed Interpretation**: Explain each card and connect it to the question
3. **Overall Message**: The reading's combined wisdom
4. **Advice**: Actionable guidance based on the reading

Be mystical, wise, and supportive. Use actual tarot card names and meanings.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1300,
		Temperature: 0.8,
		CreditCost:  1,
	},
	{
		Name:        "Numerology Analysis",
		FeatureType: "numerology",
		InputType:   InputText,
		Description: "Enter your full name and birthdate for a complete numerology profile.",
		Prompt: `You are a master numerologist with deep understanding of number vibrations.

Information provided: {user_input}

Create a comprehensive numerology reading:
1. **Life Path Number**: Calculate and interpret
2. **Expression Number**: From full name - your natural talents
3. **Soul Urge Number**: Inner desires and motivations
4. **Personal Year**: What this year holds for you
5. **Guidance**: How to align with your numbers' energy

Be detailed, accurate with numerology calculations, and insightful.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1600,
		Temperature: 0.7,
		CreditCost:  2,
	},
	{
		Name:        "Palm Reading",
		FeatureType: "palm_reading",
		InputType:   InputImage,
		Description: "Upload a clear photo of your palm to receive a detailed palmistry reading.",
		Prompt: `You are a skilled palmist (chiromancer) with expertise in reading hands.

Analyze this palm image and provide a detailed reading:
1. **Hand Shape & Type**: Identify the hand type (Earth, Air, Fire, Water)
2. **Major Lines Analysis**: Heart, Head, Life and Fate lines
3. **Mounts**: Examine the mounts and their meanings
4. **Special Markings**: Stars, crosses, triangles or other significant marks
5. **Overall Reading**: Personality traits, talents and abilities

Be detailed and engaging while staying positive.`,
		Model:       "google/gemini-2.0-flash-exp:free",
		MaxTokens:   1400,
		Temperature: 0.75,
		CreditCost:  2,
	},
}

// SeedFeatures inserts the default feature catalog. Existing features are
// left untouched so operator edits survive restarts.
func SeedFeatures(ctx context.Context, db *gorm.DB) (created int, err error) {
	for _, sf := range defaultFeatures {
		var existing Feature
		err := db.WithContext(ctx).
			Where("feature_type = ?", sf.FeatureType).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		f := Feature{
			Name:           sf.Name,
			FeatureType:    sf.FeatureType,
			InputType:      sf.InputType,
			Description:    sf.Description,
			PromptTemplate: sf.Prompt,
			ModelName:      sf.Model,
			MaxTokens:      sf.MaxTokens,
			Temperature:    sf.Temperature,
			CreditCost:     sf.CreditCost,
			IsActive:       true,
		}
		if err := db.WithContext(ctx).Create(&f).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
