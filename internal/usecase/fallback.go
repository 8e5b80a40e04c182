package usecase

// FallbackCorpus holds the sample passages returned when no recognizer output
// is available. Results built from it are flagged as degraded.
var FallbackCorpus = []string{
	"பழந்தமிழ் இலக்கியங்களில் ஒன்றான சிலப்பதிகாரம் கண்ணகி மற்றும் கோவலன் கதையை விவரிக்கிறது. இது இளங்கோவடிகளால் எழுதப்பட்டது.",
	"மன்னன் சோழன் காலத்தில் தஞ்சாவூரில் கட்டப்பட்ட பிரகதீஸ்வரர் கோயில் சிறந்த கட்டிடக்கலைக்கு ஒரு உதாரணமாகும். இக்கோயில் யுனெஸ்கோவால் உலக பாரம்பரிய சின்னமாக அறிவிக்கப்பட்டுள்ளது.",
	"பாண்டிய மன்னர்கள் வரலாறு தமிழகத்தின் தென்பகுதியில் சிறப்புற்று விளங்கியது. இவர்கள் ஆட்சியில் இலக்கியம், கலை, கட்டிடம் என பல துறைகள் வளர்ந்தன. குறிப்பாக சங்க இலக்கியங்கள் பெருமளவில் தோன்றின.",
}

// FailureText is stored as the extracted text of an attempt that could not run.
const FailureText = "OCR processing error. Could not process document."

// Bounds of the synthetic fallback timings and confidence: base + [0, spread).
const (
	fallbackEnhancementBase   = 300
	fallbackEnhancementSpread = 200
	fallbackRecognitionBase   = 980
	fallbackRecognitionSpread = 300
	fallbackPostBase          = 320
	fallbackPostSpread        = 150
	fallbackConfidenceBase    = 85
	fallbackConfidenceSpread  = 10
)
