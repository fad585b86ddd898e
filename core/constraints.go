package core

// Default constraint values.
const (
	DefaultMinMessageLength = 50
	DefaultMaxMessageLength = 500
	DefaultMinSummaryLength = 500
	DefaultMaxSummaryLength = 3000
	DefaultParticipantCount = 3
	DefaultRoundCount       = 3
)

// Allowed ranges. The extended ranges apply when Constraints.Extended is set.
const (
	MinParticipants         = 2
	MaxParticipants         = 7
	MaxParticipantsExtended = 50
	MinRounds               = 1
	MaxRounds               = 10
	MaxRoundsExtended       = 100
	MaxMessageLengthLimit   = 10000
	MaxSummaryLengthLimit   = 50000
)

// Constraints bound the shape of a session. Lengths are measured in
// characters (runes) and are inclusive.
type Constraints struct {
	MinMessageLength int  `json:"min_message_length" yaml:"min_message_length"`
	MaxMessageLength int  `json:"max_message_length" yaml:"max_message_length"`
	MinSummaryLength int  `json:"min_summary_length" yaml:"min_summary_length"`
	MaxSummaryLength int  `json:"max_summary_length" yaml:"max_summary_length"`
	ParticipantCount int  `json:"participant_count" yaml:"participant_count"`
	RoundCount       int  `json:"round_count" yaml:"round_count"`
	Extended         bool `json:"extended,omitempty" yaml:"extended,omitempty"`
}

// DefaultConstraints returns the standard three participants, three rounds setup.
func DefaultConstraints() Constraints {
	return Constraints{
		MinMessageLength: DefaultMinMessageLength,
		MaxMessageLength: DefaultMaxMessageLength,
		MinSummaryLength: DefaultMinSummaryLength,
		MaxSummaryLength: DefaultMaxSummaryLength,
		ParticipantCount: DefaultParticipantCount,
		RoundCount:       DefaultRoundCount,
	}
}

// ParticipantRange returns the inclusive allowed participant counts.
func (c Constraints) ParticipantRange() (int, int) {
	if c.Extended {
		return MinParticipants, MaxParticipantsExtended
	}
	return MinParticipants, MaxParticipants
}

// RoundRange returns the inclusive allowed round counts.
func (c Constraints) RoundRange() (int, int) {
	if c.Extended {
		return MinRounds, MaxRoundsExtended
	}
	return MinRounds, MaxRounds
}

// Validate reports every violated bound as a *ConfigError.
func (c Constraints) Validate() error {
	cerr := &ConfigError{}

	checkBounds(cerr, "message", c.MinMessageLength, c.MaxMessageLength, MaxMessageLengthLimit)
	checkBounds(cerr, "summary", c.MinSummaryLength, c.MaxSummaryLength, MaxSummaryLengthLimit)

	if lo, hi := c.ParticipantRange(); c.ParticipantCount < lo || c.ParticipantCount > hi {
		cerr.Addf("participant count %d outside [%d, %d]", c.ParticipantCount, lo, hi)
	}
	if lo, hi := c.RoundRange(); c.RoundCount < lo || c.RoundCount > hi {
		cerr.Addf("round count %d outside [%d, %d]", c.RoundCount, lo, hi)
	}

	return cerr.Err()
}

func checkBounds(cerr *ConfigError, what string, minLen, maxLen, limit int) {
	if minLen < 1 {
		cerr.Addf("min %s length must be positive, got %d", what, minLen)
	}
	if maxLen > limit {
		cerr.Addf("max %s length %d exceeds %d", what, maxLen, limit)
	}
	if minLen > maxLen {
		cerr.Addf("min %s length %d exceeds max %d", what, minLen, maxLen)
	}
}

// MessageLengthOK reports whether n lies within the message bounds.
func (c Constraints) MessageLengthOK(n int) bool {
	return n >= c.MinMessageLength && n <= c.MaxMessageLength
}

// SummaryLengthOK reports whether n lies within the summary bounds.
func (c Constraints) SummaryLengthOK(n int) bool {
	return n >= c.MinSummaryLength && n <= c.MaxSummaryLength
}

// ExpectedMessages returns participants × rounds.
func (c Constraints) ExpectedMessages() int {
	return c.ParticipantCount * c.RoundCount
}
