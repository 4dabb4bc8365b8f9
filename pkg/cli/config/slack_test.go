package config_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
)

func TestSlackConfigureDisabled(t *testing.T) {
	notifier, err := config.NewSlackForTest("", "", "", "").Configure()
	gt.NoError(t, err)
	gt.Nil(t, notifier)
}

func TestSlackConfigurePartial(t *testing.T) {
	_, err := config.NewSlackForTest("xoxb-test", "", "", "").Configure()
	gt.Error(t, err).Is(config.ErrInvalidConfig)

	_, err = config.NewSlackForTest("", "C0123", "", "").Configure()
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestSlackConfigurePostsPlan(t *testing.T) {
	var posted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		gt.Equal(t, r.URL.Path, "/chat.postMessage")
		gt.Equal(t, r.Form.Get("channel"), "C0123")
		posted.Add(1)
		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "channel": "C0123", "ts": "1700000000.000100",
		}))
	}))
	defer srv.Close()

	notifier, err := config.NewSlackForTest("xoxb-test", "#C0123", "https://actions.example.com", srv.URL+"/").Configure()
	gt.NoError(t, err).Required()
	gt.NotNil(t, notifier)

	plan := &model.ActionPlan{
		ID:          "plan-1",
		Title:       "Rotate credentials",
		Description: model.MustPayload("Rotate every API key before Friday"),
	}
	author := &model.User{ID: "u-admin", Username: "admin"}
	gt.NoError(t, notifier.NotifyPlan(t.Context(), plan, author, nil))
	gt.Equal(t, posted.Load(), int32(1))
}
