package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/lvdsbridge/internal/api/models"
	"github.com/smazurov/lvdsbridge/internal/led"
)

// registerLEDRoutes registers LED control endpoints. The status LED is
// normally driven by link state; a manual change holds until the next link
// transition.
func (s *Server) registerLEDRoutes() {
	ctrl := s.options.LEDController
	if ctrl == nil {
		s.logger.Debug("LED controller not available, skipping LED routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "control-led",
		Method:      http.MethodPost,
		Path:        "/api/leds",
		Summary:     "Control LED",
		Description: "Switch an LED and optionally change its pattern",
		Tags:        []string{"leds"},
		Errors:      []int{401, 422, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LEDRequest) (*models.LEDResponse, error) {
		if !slices.Contains(ctrl.Available(), input.Body.Type) {
			return nil, huma.Error422UnprocessableEntity("Unknown LED type",
				&huma.ErrorDetail{Location: "body.type", Value: input.Body.Type})
		}
		pattern := ""
		if input.Body.Pattern != nil {
			pattern = *input.Body.Pattern
			if !slices.Contains(ctrl.Patterns(), pattern) {
				return nil, huma.Error422UnprocessableEntity("Unknown LED pattern",
					&huma.ErrorDetail{Location: "body.pattern", Value: pattern})
			}
		}

		if err := ctrl.Set(input.Body.Type, input.Body.Enabled, pattern); err != nil {
			return nil, huma.Error500InternalServerError("Failed to control LED", err)
		}

		resp := &models.LEDResponse{Body: models.LEDState{
			Type:    input.Body.Type,
			Enabled: input.Body.Enabled,
			Pattern: pattern,
		}}
		if input.Body.Type == led.StatusLED {
			resp.Body.Note = "overridden until the next link state change"
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-led-capabilities",
		Method:      http.MethodGet,
		Path:        "/api/leds/capabilities",
		Summary:     "Get LED Capabilities",
		Description: "LED names and patterns available on this board",
		Tags:        []string{"leds"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.LEDCapabilitiesResponse, error) {
		return &models.LEDCapabilitiesResponse{Body: models.LEDCapabilitiesData{
			AvailableTypes:    ctrl.Available(),
			AvailablePatterns: ctrl.Patterns(),
			StatusLED:         led.StatusLED,
		}}, nil
	})

	s.logger.Debug("LED routes registered")
}
