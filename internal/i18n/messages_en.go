package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":         "Error: %s",
	"error.auth":            "Couldn't fetch token. Client ID and/or Client Secret are probably invalid.",
	"error.download_failed": "Error: %s; skipping track #%d...",

	// Track listing
	"list.header": "The query you requested contained %d track(s):",
	"list.item":   "%3d. %s",

	// Format field listing
	"fields.header": "Available fields for the format argument:",
	"fields.item":   "%12s %s",

	// Questions and prompts
	"prompt.confirm": "Are you sure you want to download these tracks? [y/n] ",

	// Progress and outcome
	"info.no_results":  "No tracks were found.",
	"info.aborted":     "Download cancelled.",
	"info.interrupted": "Interrupted by user.",
	"info.fetching":    "Fetching first track found in search \"%s\"...",
	"info.duplicate":   "Already downloaded \"%s\", skipping. (%d/%d)",
	"info.summary":     "Done: %d downloaded, %d failed, %d skipped.",
	"success.download": "Successfully downloaded \"%s\"! (%d/%d)",
	"success.login":    "Login successful, token saved to %s",
	"login.open_url":   "Open the following URL in your browser to log in:\n%s",
	"login.waiting":    "Waiting for the browser to redirect back...",
}
