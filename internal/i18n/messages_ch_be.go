package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Error messages
	"error.generic":         "Fähler: %s",
	"error.auth":            "Ha kes Token überchoh. D Client ID oder ds Client Secret si wahrschinlech fautsch.",
	"error.download_failed": "Fähler: %s; überspringe s Lied #%d...",

	// Track listing
	"list.header": "Dini Aafrag het %d Lied(er) gfunde:",
	"list.item":   "%3d. %s",

	// Format field listing
	"fields.header": "Die Fäuder chasch im Format bruuche:",
	"fields.item":   "%12s %s",

	// Questions and prompts
	"prompt.confirm": "Wosch die Lieder würklech abelade? [y/n] ",

	// Progress and outcome
	"info.no_results":  "Ha kei Lieder gfunde.",
	"info.aborted":     "Abelade abbroche.",
	"info.interrupted": "Abbroche.",
	"info.fetching":    "Hole dr erscht Träffer für \"%s\"...",
	"info.duplicate":   "\"%s\" isch scho abeglade, überspringe. (%d/%d)",
	"info.summary":     "Fertig: %d abeglade, %d fählgschlage, %d übersprunge.",
	"success.download": "\"%s\" isch abeglade! (%d/%d)",
	"success.login":    "Aagmäudet, ds Token isch gspicheret unger %s",
	"login.open_url":   "Mach die URL im Browser uf zum di aazmäude:\n%s",
	"login.waiting":    "Warte bis dr Browser zrügg chunnt...",
}
