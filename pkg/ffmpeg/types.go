package ffmpeg

// SpeechSampleRate is the sample rate whisper models are trained on
const SpeechSampleRate = 16000

// AudioMetadata represents metadata extracted from a media file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Bitrate    int     `json:"bitrate"`     // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (mp4, mov, mp3...)
	Codec      string  `json:"codec"`       // Audio codec
	Size       int64   `json:"size"`        // File size in bytes
	Title      string  `json:"title"`       // Title tag, if any
	HasAudio   bool    `json:"has_audio"`
}

// ExtractOptions controls audio extraction from video
type ExtractOptions struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// DefaultExtractOptions returns the mp3 settings used for uploaded videos
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Codec:      "libmp3lame",
		SampleRate: 44100,
		Channels:   2,
	}
}
