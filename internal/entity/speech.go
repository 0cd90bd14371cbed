package entity

// VoiceStyle selects the synthesized voice. Providers map it onto their own
// voice identifiers; the offline engine only varies pacing.
type VoiceStyle struct {
	Voice    string  `json:"voice"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
}

// DefaultVoiceStyle is used when a request does not specify a voice.
func DefaultVoiceStyle() VoiceStyle {
	return VoiceStyle{
		Voice:    "default",
		Language: "en-US",
		Speed:    1.0,
	}
}

// SpeechAudio is the result of a synthesis call.
type SpeechAudio struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Provider string `json:"provider"`
}

// FileExtension maps the audio MIME type onto the on-disk extension.
func (a SpeechAudio) FileExtension() string {
	switch a.MIMEType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".mp3"
	}
}

// Transcription is the outcome of speech recognition. Recoverable provider
// failures are reported as the unrecognized sentinel, not as errors.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Unrecognized reports whether the transcription is the empty sentinel.
func (t Transcription) Unrecognized() bool {
	return t.Text == ""
}

// UnrecognizedTranscription is returned when the recognizer produced nothing
// usable. Validation downstream rejects it with a fallback message.
func UnrecognizedTranscription() Transcription {
	return Transcription{}
}

// ASRTranscribeResponse is the wire format of the external ASR service.
type ASRTranscribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}
