package entities

// GestureEntry is one row of the sign dictionary
type GestureEntry struct {
	Word        string `json:"word" yaml:"word"`
	Gesture     string `json:"gesture" yaml:"gesture"`
	Description string `json:"description" yaml:"description"`
}

// SignToken is the sign produced for a single input word
type SignToken struct {
	Word        string  `json:"word" bson:"word"`
	Gesture     string  `json:"gesture" bson:"gesture"`
	Description string  `json:"description" bson:"description"`
	Timing      float64 `json:"timing" bson:"timing"` // start offset in seconds
}

// AvatarInstruction is a renderable directive for an avatar animation system.
// Hand, Direction and Letters are only set for the actions that use them.
type AvatarInstruction struct {
	Action    string  `json:"action" bson:"action"`
	Hand      string  `json:"hand,omitempty" bson:"hand,omitempty"`
	Direction string  `json:"direction,omitempty" bson:"direction,omitempty"`
	Letters   string  `json:"letters,omitempty" bson:"letters,omitempty"`
	Duration  float64 `json:"duration" bson:"duration"`
	Timing    float64 `json:"timing" bson:"timing"`
}

// TranslationResult is a full text-to-sign translation
type TranslationResult struct {
	OriginalText       string              `json:"original_text" bson:"original_text"`
	TotalDuration      float64             `json:"total_duration" bson:"total_duration"`
	Signs              []SignToken         `json:"signs" bson:"signs"`
	AvatarInstructions []AvatarInstruction `json:"avatar_instructions" bson:"avatar_instructions"`
}
