package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Registration Errors (E200-E209)
	// ============================================

	"E201": {
		Category: CategoryComposition,
		Message:  "Missing supertype base",
		Detail:   "The extends attribute names a tag with no intrinsic prototype and no registered element.",
	},
	"E202": {
		Category: CategoryPlatform,
		Message:  "Native registration conflict",
		Detail:   "The platform rejected the element because the name is already registered natively.",
	},
	"E203": {
		Category: CategoryTransform,
		Message:  "Declarative transform failed",
		Detail:   "A declarative transform step (attributes, events, stylesheets, styling) returned an error.",
	},
	"E204": {
		Category: CategoryRegistration,
		Message:  "Invalid element name",
		Detail:   "Element names must start with a lowercase letter and contain a hyphen.",
	},
	"E205": {
		Category: CategoryRegistration,
		Message:  "Pending request replaced",
		Detail:   "A second registration request arrived for a name that is still undefined; the earlier request will never resume.",
	},
	"E206": {
		Category: CategoryRegistration,
		Message:  "Registration callback failed",
		Detail:   "The element's registerCallback member returned an error.",
	},

	// ============================================
	// Loader Errors (E210-E219)
	// ============================================

	"E210": {
		Category: CategoryLoader,
		Message:  "Declaration source unavailable",
		Detail:   "The declaration source could not be read.",
	},
	"E211": {
		Category: CategoryLoader,
		Message:  "Invalid declaration document",
		Detail:   "The declaration document could not be decoded.",
	},
	"E212": {
		Category: CategoryLoader,
		Message:  "Unsupported document format",
		Detail:   "Declaration documents must be .json, .yaml, .yml or .hcl files.",
	},
	"E213": {
		Category: CategoryLoader,
		Message:  "Stylesheet unavailable",
		Detail:   "An external stylesheet referenced by a declaration could not be fetched.",
	},

	// ============================================
	// Server and Config Errors (E220-E229)
	// ============================================

	"E220": {
		Category: CategoryServer,
		Message:  "Invalid request body",
		Detail:   "The request body is not a valid definition or declaration.",
	},
	"E221": {
		Category: CategoryServer,
		Message:  "Element not found",
		Detail:   "No element is registered under the requested name.",
	},
	"E222": {
		Category: CategoryServer,
		Message:  "Rate limit exceeded",
		Detail:   "Too many mutating requests; retry after a second.",
	},
	"E225": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file or flags contain an invalid value.",
	},
	"E226": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file exists but could not be parsed.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
