package stt

import "strings"

// regionalLanguages are the locale tags the provider accepts with a region
// qualifier; everything else is sent as the bare base language.
var regionalLanguages = map[string]string{
	"en-us":  "en-US",
	"en-gb":  "en-GB",
	"en-au":  "en-AU",
	"en-nz":  "en-NZ",
	"en-in":  "en-IN",
	"es-419": "es-419",
	"fr-ca":  "fr-CA",
	"pt-br":  "pt-BR",
	"zh-cn":  "zh-CN",
	"zh-tw":  "zh-TW",
}

// providerLanguage maps a BCP-47 locale tag from configuration to the
// language code the transcription provider expects. "th-TH" becomes "th";
// region-qualified tags the provider supports pass through in canonical
// casing.
func providerLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}

	lower := strings.ToLower(tag)
	if canonical, ok := regionalLanguages[lower]; ok {
		return canonical
	}

	if i := strings.IndexAny(lower, "-_"); i > 0 {
		return lower[:i]
	}
	return lower
}
