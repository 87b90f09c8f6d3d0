package handlers

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"player-monitor-system/models"
)

type mapStatuses map[string]*models.PlayerStatus

func (m mapStatuses) Get(_ context.Context, username string) (*models.PlayerStatus, error) {
	return m[username], nil
}

func TestPlayerStatusRoute(t *testing.T) {
	app := fiber.New()
	SetupPlayerRoutes(app, mapStatuses{"hikaru": {Username: "hikaru", IsOnline: true}}, testToken)

	code, body := do(t, app, "GET", "/players/Hikaru/status", "")
	if code != fiber.StatusOK || !strings.Contains(body, `"is_online":true`) {
		t.Errorf("status=%d body=%s", code, body)
	}

	if code, _ := do(t, app, "GET", "/players/nobody/status", ""); code != fiber.StatusNotFound {
		t.Errorf("unknown player: status = %d", code)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/players/hikaru/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated lookup: status = %d, want 401", resp.StatusCode)
	}
}

func TestOpsRoutes(t *testing.T) {
	healthy := true
	app := fiber.New()
	SetupOpsRoutes(app, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("healthy: status = %d", resp.StatusCode)
	}

	healthy = false
	resp, _ = app.Test(httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("unhealthy: status = %d", resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Errorf("metrics: status=%d", resp.StatusCode)
	}
}
