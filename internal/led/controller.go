package led

// StatusLED is the logical LED the manager drives. Each board maps it to a
// physical LED.
const StatusLED = "status"

// Controller abstracts LED hardware control across different SBC boards.
type Controller interface {
	// Set switches an LED and optionally changes its pattern ("solid",
	// "blink", "heartbeat" or a raw trigger name). An empty pattern leaves
	// the trigger alone.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the logical LED names this board supports.
	Available() []string

	// Patterns returns the supported patterns.
	Patterns() []string
}
