package faceswap

import (
	"fmt"
	"strings"
)

// translation pairs a terse diagnostic with a remedial action the user can
// actually take.
type translation struct {
	message  string
	solution string
}

func (t translation) String() string {
	return t.message + ". " + t.solution
}

// codeTable maps exact provider error codes to translations. Providers are
// inconsistent about returning structured codes versus free text, hence the
// substring fallback below.
var codeTable = map[string]translation{
	"10003": {
		message:  "Image size too large",
		solution: "The wig image has been automatically resized. Please try again.",
	},
	"FACE_NOT_FOUND": {
		message:  "No face detected in your photo",
		solution: "Please upload a clear photo where your face is clearly visible and well-lit.",
	},
	"MULTIPLE_FACES": {
		message:  "Multiple faces detected",
		solution: "Please upload a photo with only one person facing the camera directly.",
	},
	"POOR_QUALITY": {
		message:  "Image quality is too low",
		solution: "Use a higher resolution photo with good lighting and clear facial features.",
	},
	"FACE_TOO_SMALL": {
		message:  "Face is too small in the image",
		solution: "Please upload a closer photo where your face takes up at least 1/3 of the image.",
	},
	"BAD_LIGHTING": {
		message:  "Poor lighting conditions",
		solution: "Use a photo with even lighting - avoid shadows, backlight, or extreme brightness.",
	},
	"BLURRY_IMAGE": {
		message:  "Image is too blurry",
		solution: "Please upload a sharper photo. Hold your camera steady or use better lighting.",
	},
	"INVALID_IMAGE_FORMAT": {
		message:  "Unsupported image format",
		solution: "Please use JPG, PNG, or WebP format. Convert your image if needed.",
	},
	"IMAGE_TOO_LARGE": {
		message:  "Image file is too large",
		solution: "Please compress your image to under 10MB or use a smaller file size.",
	},
	"IMAGE_TOO_SMALL": {
		message:  "Image resolution is too low",
		solution: "Please use an image with at least 500x500 pixels resolution.",
	},
	"NETWORK_ERROR": {
		message:  "Network connection failed",
		solution: "Check your internet connection and try again. If using mobile data, ensure strong signal.",
	},
	"SERVER_ERROR": {
		message:  "Server is temporarily unavailable",
		solution: "Please wait a few minutes and try again. The service may be undergoing maintenance.",
	},
	"RATE_LIMITED": {
		message:  "Too many requests",
		solution: "Please wait a few minutes before trying again. We limit requests to ensure service quality.",
	},
	"API_KEY_INVALID": {
		message:  "Service configuration error",
		solution: "This is a system issue. Please contact support if the problem persists.",
	},
	"PROCESSING_TIMEOUT": {
		message:  "Processing took too long",
		solution: "Please try again with a smaller image or better lighting conditions.",
	},
	"SAFETY_VIOLATION": {
		message:  "Content policy violation",
		solution: "Please use appropriate images that comply with our terms of service.",
	},
	"UNSUPPORTED_ANGLE": {
		message:  "Face angle not supported",
		solution: "Please use a front-facing photo with your head straight and both eyes visible.",
	},
	"OCCLUSION": {
		message:  "Face is partially covered",
		solution: "Remove glasses, hats, or hair covering your face. Ensure your entire face is visible.",
	},
	"EXPRESSION_EXTREME": {
		message:  "Facial expression too extreme",
		solution: "Use a photo with a neutral expression - avoid wide open mouth or squinted eyes.",
	},
}

// messageTheme is one substring-matching rule of the fallback tier. Order
// matters: the first matching theme wins.
type messageTheme struct {
	match  func(string) bool
	result string
}

func containsAny(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

var messageThemes = []messageTheme{
	{
		match: func(msg string) bool {
			return containsAny(msg, "too large", "size", "2048", "dimension")
		},
		result: "Image size too large. The image has been automatically resized. Please try again.",
	},
	{
		match: func(msg string) bool {
			return strings.Contains(msg, "face") && containsAny(msg, "detect", "detection", "found")
		},
		result: "No face detected in your photo. Please upload a clear photo where your face is clearly visible and well-lit.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "multiple", "many faces")
		},
		result: "Multiple faces detected. Please upload a photo with only one person facing the camera directly.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "network", "connection", "download")
		},
		result: "Network connection error. Please check your internet and try again.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "timeout", "timed out")
		},
		result: "Processing timed out. Please try again with a smaller, clearer image.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "format", "unsupported", "invalid image")
		},
		result: "Image format issue. Please use a standard JPG or PNG image.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "quality", "blur")
		},
		result: "Image quality is too low. Please upload a clearer, higher quality photo.",
	},
	{
		match: func(msg string) bool {
			return containsAny(msg, "safety", "content", "policy", "nsfw")
		},
		result: "Image content cannot be processed. Please use a different photo.",
	},
}

// Translator converts opaque provider (code, message) pairs into one stable,
// user-actionable sentence. The zero value uses the shared code table;
// adapters extend it with provider-specific codes.
type Translator struct {
	extra map[string]translation
}

// NewTranslator builds a translator, optionally layering provider-specific
// code translations over the shared table. Extra entries win on collision.
func NewTranslator(extra map[string]string) *Translator {
	t := &Translator{}
	if len(extra) > 0 {
		t.extra = make(map[string]translation, len(extra))
		for code, sentence := range extra {
			t.extra[code] = translation{message: sentence}
		}
	}
	return t
}

// Translate resolves the code against the exact tables first, then falls
// back to case-insensitive substring themes over the message, and finally a
// generic template that keeps the raw provider message for diagnosability.
func (t *Translator) Translate(code, message string) string {
	code = strings.TrimSpace(code)
	if t != nil && t.extra != nil {
		if tr, ok := t.extra[code]; ok {
			if tr.solution == "" {
				return tr.message
			}
			return tr.String()
		}
	}
	if tr, ok := codeTable[code]; ok {
		return tr.String()
	}

	lower := strings.ToLower(message)
	for _, theme := range messageThemes {
		if theme.match(lower) {
			return theme.result
		}
	}

	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}
	return fmt.Sprintf("Face swap failed: %s. Please try uploading a clearer photo with good lighting where your face is clearly visible.", message)
}
