package speech

// VoiceSettings tunes how a voice renders text. Zero Speed is omitted so the
// remote default applies.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// SynthesisRequest is one text-to-speech call.
type SynthesisRequest struct {
	Text         string
	VoiceID      string
	ModelID      string
	OutputFormat string
	// VoiceSettings overrides the voice's stored settings when non-nil.
	VoiceSettings *VoiceSettings
	LanguageCode  string
	Seed          *int
	// Normalize runs the text through the normalizer before sending.
	Normalize bool
}

// SoundEffectRequest is one sound-generation call.
type SoundEffectRequest struct {
	Text            string
	OutputFormat    string
	DurationSeconds *float64
	PromptInfluence *float64
}

// Voice describes one voice available to the account.
type Voice struct {
	VoiceID     string            `json:"voice_id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	PreviewURL  string            `json:"preview_url,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Language is a language supported by a model.
type Language struct {
	LanguageID string `json:"language_id"`
	Name       string `json:"name"`
}

// Model describes one synthesis model.
type Model struct {
	ModelID           string     `json:"model_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	CanDoTextToSpeech bool       `json:"can_do_text_to_speech"`
	Languages         []Language `json:"languages,omitempty"`
}

// Subscription summarizes the account's character quota.
type Subscription struct {
	Tier                        string `json:"tier"`
	Status                      string `json:"status,omitempty"`
	CharacterCount              int    `json:"character_count"`
	CharacterLimit              int    `json:"character_limit"`
	NextCharacterCountResetUnix int64  `json:"next_character_count_reset_unix,omitempty"`
}

// RemainingCharacters returns the unused quota, never negative.
func (s Subscription) RemainingCharacters() int {
	return max(s.CharacterLimit-s.CharacterCount, 0)
}

// synthesisBody is the wire payload for text-to-speech.
type synthesisBody struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id,omitempty"`
	VoiceSettings *VoiceSettings `json:"voice_settings,omitempty"`
	LanguageCode  string         `json:"language_code,omitempty"`
	Seed          *int           `json:"seed,omitempty"`
}

// soundEffectBody is the wire payload for sound generation.
type soundEffectBody struct {
	Text            string   `json:"text"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	PromptInfluence *float64 `json:"prompt_influence,omitempty"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}
