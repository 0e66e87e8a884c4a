package voice

import (
	"strings"
	"testing"
)

func TestCatalogHasEightVoices(t *testing.T) {
	if len(Catalog) != 8 {
		t.Fatalf("expected 8 voices, got %d", len(Catalog))
	}
	for _, id := range []ID{Alloy, Echo, Fable, Onyx, Nova, Shimmer, Cedar, Marin} {
		if !id.Valid() {
			t.Fatalf("voice %s missing from catalog", id)
		}
	}
}

func TestProfileValidate(t *testing.T) {
	ok := Profile{Voice: Nova, Mode: ModePreserve}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}
	if err := (Profile{Voice: "robotic", Mode: ModeNeutral}).Validate(); err == nil {
		t.Fatalf("unknown voice accepted")
	}
	if err := (Profile{Voice: Alloy, Mode: "loud"}).Validate(); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}

func TestInstructionsSelectPreservationSection(t *testing.T) {
	preserve := Instructions(ModePreserve, "en", "fr")
	if !strings.Contains(preserve, "Voice Preservation") {
		t.Fatalf("preserve mode missing preservation section")
	}
	if !strings.Contains(preserve, "French") {
		t.Fatalf("target language not named")
	}

	enhanced := Instructions(ModeEnhanced, "en", "fr")
	if !strings.Contains(enhanced, "Voice Enhancement") {
		t.Fatalf("enhanced mode missing enhancement section")
	}

	neutral := Instructions(ModeNeutral, "en", "fr")
	if strings.Contains(neutral, "Voice Preservation") {
		t.Fatalf("neutral mode should not preserve")
	}
}

func TestInstructionsAutoDetect(t *testing.T) {
	text := Instructions(ModeNeutral, AutoDetect, "es")
	if !strings.Contains(text, "Detect the spoken language") {
		t.Fatalf("auto-detect wording missing")
	}
	if !strings.Contains(text, "Spanish") {
		t.Fatalf("target language not resolved")
	}
}
