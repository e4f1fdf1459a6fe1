package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://cfsui.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Routing and templates (E101-E199)

	"E101": {
		Category: CategoryRouting,
		Message:  "No route matches the URL",
		Detail:   "The path did not match any registered route after the application root was removed. The page was left unchanged.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryTemplate,
		Message:  "Template not found",
		Detail:   "No template with this id is embedded in the page or registered with the renderer.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryTemplate,
		Message:  "Template syntax error",
		Detail:   "The template could not be compiled. Check that every <% %> region is closed and that control blocks are balanced.",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryTemplate,
		Message:  "Template evaluation failed",
		Detail:   "An expression in the template failed while rendering, usually because a value is undefined or has an unexpected type.",
		DocURL:   docBase + "E104",
	},
	"E105": {
		Category: CategoryRouting,
		Message:  "Invalid route pattern",
		Detail:   "Route patterns are slash-separated segments where a segment starting with ':' captures one path segment.",
		DocURL:   docBase + "E105",
	},

	// Configuration (E201-E299)

	"E201": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value from cfsui.yaml or a CFSUI_ environment variable failed validation.",
		DocURL:   docBase + "E201",
	},
	"E202": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file exists but could not be parsed as YAML.",
		DocURL:   docBase + "E202",
	},

	// Data access (E301-E399)

	"E301": {
		Category: CategoryFetch,
		Message:  "Fetch failed",
		Detail:   "The API server returned an error or could not be reached after retrying.",
		DocURL:   docBase + "E301",
	},
	"E302": {
		Category: CategoryStore,
		Message:  "Cabinet store unavailable",
		Detail:   "The backing store for tags and file data could not be opened.",
		DocURL:   docBase + "E302",
	},
	"E303": {
		Category: CategoryStore,
		Message:  "Corrupt tag file",
		Detail:   "A tag file or bucket manifest could not be decoded.",
		DocURL:   docBase + "E303",
	},

	// CLI (E401-E499)

	"E401": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
		DocURL:   docBase + "E401",
	},
}

// Lookup returns the registered template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
