package voice

import (
	"fmt"
	"strings"
)

// ID identifies one of the endpoint's output voices.
type ID string

const (
	Alloy   ID = "alloy"
	Echo    ID = "echo"
	Fable   ID = "fable"
	Onyx    ID = "onyx"
	Nova    ID = "nova"
	Shimmer ID = "shimmer"
	Cedar   ID = "cedar"
	Marin   ID = "marin"
)

// Catalog lists every supported voice with a display description.
var Catalog = map[ID]string{
	Alloy:   "Neutral, clear",
	Echo:    "Deep, resonant",
	Fable:   "Warm, expressive",
	Onyx:    "Strong, confident",
	Nova:    "Bright, energetic",
	Shimmer: "Soft, gentle",
	Cedar:   "Natural, grounded",
	Marin:   "Coastal, fresh",
}

// Valid reports whether id names a known voice.
func (id ID) Valid() bool {
	_, ok := Catalog[id]
	return ok
}

// PreservationMode controls how strongly the original speaker's vocal
// identity is retained in translated output.
type PreservationMode string

const (
	ModePreserve PreservationMode = "preserve"
	ModeEnhanced PreservationMode = "enhanced"
	ModeNeutral  PreservationMode = "neutral"
)

func (m PreservationMode) Valid() bool {
	switch m {
	case ModePreserve, ModeEnhanced, ModeNeutral:
		return true
	}
	return false
}

// Profile is the caller's voice selection for a translation request.
type Profile struct {
	Voice ID
	Mode  PreservationMode
}

// Validate checks the profile against the closed voice and mode sets.
func (p Profile) Validate() error {
	if !p.Voice.Valid() {
		return fmt.Errorf("unknown voice %q", p.Voice)
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("unknown preservation mode %q", p.Mode)
	}
	return nil
}

// AutoDetect is the source-language value that lets the endpoint detect
// the spoken language from the audio itself.
const AutoDetect = "auto"

var languageNames = map[string]string{
	"en": "English",
	"fr": "French",
	"es": "Spanish",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"zh": "Chinese",
}

// LanguageName resolves a language code to a display name, falling back
// to the title-cased code for unknown entries.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	if code == "" {
		return ""
	}
	return strings.ToUpper(code[:1]) + code[1:]
}

// Instructions builds the translation instruction text sent with the
// session configuration. The wording follows the remote endpoint's
// prompting guidance; the preservation mode selects the voice-handling
// section.
func Instructions(mode PreservationMode, sourceLang, targetLang string) string {
	target := LanguageName(targetLang)

	var b strings.Builder
	b.WriteString("# Role & Objective\n")
	b.WriteString("You are a professional speech translator.\n")
	if sourceLang == AutoDetect || sourceLang == "" {
		b.WriteString("Detect the spoken language and translate it to " + target + ".\n")
	} else {
		b.WriteString("Translate spoken " + LanguageName(sourceLang) + " to " + target + ".\n")
	}
	b.WriteString("\n# Language\n")
	b.WriteString("- ALWAYS respond in " + target + " only\n")
	b.WriteString("- Do not respond in any other language\n")
	b.WriteString("\n# Unclear Audio\n")
	b.WriteString("- Only respond to clear audio input\n")
	b.WriteString("- If audio is unclear or noisy, ask for clarification in " + target + "\n")

	switch mode {
	case ModePreserve:
		b.WriteString("\n# Voice Preservation (CRITICAL)\n")
		b.WriteString("- PRESERVE the original speaker's vocal tone, pitch, and rhythm\n")
		b.WriteString("- Keep emotional nuances, inflections, and speaking style\n")
		b.WriteString("- Keep age and gender vocal characteristics\n")
		b.WriteString("- Translate the meaning while keeping the speaker's vocal identity intact\n")
	case ModeEnhanced:
		b.WriteString("\n# Voice Enhancement\n")
		b.WriteString("- Maintain emotional tone and speaking style\n")
		b.WriteString("- Slightly improve clarity and naturalness\n")
		b.WriteString("- Keep a recognizable vocal identity\n")
	default:
		b.WriteString("\n# Voice Processing\n")
		b.WriteString("- Use the selected voice profile for clear, natural speech\n")
		b.WriteString("- Focus on accurate meaning transfer and natural delivery\n")
	}
	return b.String()
}
