package domain

import "fmt"

// MessageTemplate selects how the notification body is rendered.
type MessageTemplate string

const (
	// TemplateRecord describes the vehicle from the resolved record.
	TemplateRecord MessageTemplate = "record"
	// TemplateLegacy always names a blue Ford Escort, matching the messages
	// sent by the first deployment of this service.
	TemplateLegacy MessageTemplate = "legacy"
)

const (
	legacyMessage = "Your blue Ford Escort (license plate %s)  was involved in a traffic violation. A ticket will be mailed to your address."
	recordMessage = "Your %s (license plate %s) was involved in a traffic violation. A ticket will be mailed to your address."
)

// BuildMessage renders the notification for a matched plate. The plate is
// always the recognized text; the record only contributes the description.
func BuildMessage(tmpl MessageTemplate, plate string, v VehicleRecord) string {
	if tmpl == TemplateLegacy {
		return fmt.Sprintf(legacyMessage, plate)
	}
	desc := v.Description()
	if desc == "" {
		desc = "vehicle"
	}
	return fmt.Sprintf(recordMessage, desc, plate)
}

// ValidTemplate reports whether t is a known template.
func ValidTemplate(t MessageTemplate) bool {
	return t == TemplateRecord || t == TemplateLegacy
}
