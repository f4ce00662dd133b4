package tools

// TextToSpeechInput is the text_to_speech tool input.
type TextToSpeechInput struct {
	Text            string   `json:"text" jsonschema:"The text to convert to speech" validate:"required,max=5000"`
	VoiceID         string   `json:"voice_id,omitempty" jsonschema:"Voice id to speak with; defaults to the configured voice" validate:"omitempty,max=64"`
	ModelID         string   `json:"model_id,omitempty" jsonschema:"Model id such as eleven_multilingual_v2 or eleven_turbo_v2_5" validate:"omitempty,max=64"`
	OutputFormat    string   `json:"output_format,omitempty" jsonschema:"Output format such as mp3_44100_128 or pcm_24000" validate:"omitempty,output_format"`
	Preset          string   `json:"preset,omitempty" jsonschema:"Named voice settings: default, stable, expressive, narration, conversational" validate:"omitempty,voice_preset"`
	Stability       *float64 `json:"stability,omitempty" jsonschema:"Voice stability between 0 and 1" validate:"omitempty,gte=0,lte=1"`
	SimilarityBoost *float64 `json:"similarity_boost,omitempty" jsonschema:"Similarity to the original voice between 0 and 1" validate:"omitempty,gte=0,lte=1"`
	Style           *float64 `json:"style,omitempty" jsonschema:"Style exaggeration between 0 and 1" validate:"omitempty,gte=0,lte=1"`
	Speed           *float64 `json:"speed,omitempty" jsonschema:"Speaking speed between 0.7 and 1.2" validate:"omitempty,gte=0.7,lte=1.2"`
	LanguageCode    string   `json:"language_code,omitempty" jsonschema:"ISO 639-1 language code to enforce" validate:"omitempty,alpha,len=2"`
	Seed            *int     `json:"seed,omitempty" jsonschema:"Seed for repeatable generation" validate:"omitempty,gte=0"`
	Normalize       *bool    `json:"normalize,omitempty" jsonschema:"Clean up punctuation and abbreviations before synthesis"`
}

// SoundEffectInput is the generate_sound_effect tool input.
type SoundEffectInput struct {
	Text            string   `json:"text" jsonschema:"Description of the sound to generate" validate:"required,max=1000"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" jsonschema:"Length of the sound in seconds (0.5 to 22)" validate:"omitempty,gte=0.5,lte=22"`
	PromptInfluence *float64 `json:"prompt_influence,omitempty" jsonschema:"How closely to follow the description, 0 to 1" validate:"omitempty,gte=0,lte=1"`
	OutputFormat    string   `json:"output_format,omitempty" jsonschema:"Output format such as mp3_44100_128" validate:"omitempty,output_format"`
}

// ListVoicesInput is the list_voices tool input.
type ListVoicesInput struct {
	Search string `json:"search,omitempty" jsonschema:"Only return voices whose name or category contains this text" validate:"omitempty,max=100"`
}

// GetVoiceInput is the get_voice tool input.
type GetVoiceInput struct {
	VoiceID string `json:"voice_id" jsonschema:"The voice id to look up" validate:"required,max=64"`
}

// EmptyInput is used by tools that take no arguments.
type EmptyInput struct{}
