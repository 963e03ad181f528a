package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/lvdsbridge/internal/api/models"
	"github.com/smazurov/lvdsbridge/internal/bridge"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// BridgeService is the part of a bridge the API exposes.
type BridgeService interface {
	Status() bridge.Status
	Modes() []bridge.Mode
	Enable() error
}

// registerBridgeRoutes registers bridge status and control endpoints.
func (s *Server) registerBridgeRoutes() {
	if s.bridge == nil {
		s.logger.Debug("No bridge configured, skipping bridge routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-bridge-status",
		Method:      http.MethodGet,
		Path:        "/api/bridge",
		Summary:     "Bridge Status",
		Description: "Current bring-up stage, retry counter, detected and measured timings",
		Tags:        []string{"bridge"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.BridgeStatusResponse, error) {
		return &models.BridgeStatusResponse{Body: s.bridge.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-bridge-modes",
		Method:      http.MethodGet,
		Path:        "/api/bridge/modes",
		Summary:     "Bridge Modes",
		Description: "Modes the bridge advertises to the display pipeline",
		Tags:        []string{"bridge"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ModesResponse, error) {
		return &models.ModesResponse{Body: models.ModesData{Modes: s.bridge.Modes()}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-bridge-timings",
		Method:      http.MethodGet,
		Path:        "/api/bridge/timings",
		Summary:     "Supported Timings",
		Description: "Input timings the RX detector can match",
		Tags:        []string{"bridge"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.TimingsResponse, error) {
		timings := lt9211c.SupportedTimings()
		return &models.TimingsResponse{Body: models.TimingsData{Timings: timings, Count: len(timings)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "enable-bridge",
		Method:        http.MethodPost,
		Path:          "/api/bridge/enable",
		Summary:       "Restart Bring-up",
		Description:   "Reset the bridge and restart bring-up from the prepare stage",
		Tags:          []string{"bridge"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 409, 410},
	}, func(_ context.Context, _ *struct{}) (*models.EnableResponse, error) {
		if err := s.bridge.Enable(); err != nil {
			switch {
			case errors.Is(err, bridge.ErrNotAttached):
				return nil, huma.Error409Conflict("Bridge is not attached to a DSI host", err)
			case errors.Is(err, lt9211c.ErrDetached):
				return nil, huma.Error410Gone("Bridge has been detached", err)
			default:
				return nil, huma.Error500InternalServerError("Failed to enable bridge", err)
			}
		}

		resp := &models.EnableResponse{}
		resp.Body.Message = "Bring-up restarted"
		resp.Body.Status = s.bridge.Status()
		return resp, nil
	})
}
