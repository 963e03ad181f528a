package led

import (
	"os"
	"strings"

	"github.com/smazurov/lvdsbridge/internal/logging"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boards maps a device tree model substring to its LED names. The status
// entry is the LED the manager drives.
var boards = []struct {
	model string
	leds  map[string]string
}{
	{"NanoPC-T6", map[string]string{StatusLED: "sys_led", "user": "usr_led"}},
	{"Orange Pi", map[string]string{StatusLED: "green_led", "blue": "blue_led"}},
	{"Raspberry Pi", map[string]string{StatusLED: "ACT"}},
}

// New picks a controller for the detected board, falling back to a no-op
// controller.
func New(logger logging.Logger) Controller {
	return forModel(detectBoard(), logger)
}

func forModel(model string, logger logging.Logger) Controller {
	for _, b := range boards {
		if strings.Contains(model, b.model) {
			if logger != nil {
				logger.Info("Using sysfs LED controller", "board_model", model)
			}
			return newSysfs(b.leds)
		}
	}
	if logger != nil {
		logger.Info("No LED support detected, using no-op controller", "board_model", model)
	}
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
