package cleanuphandler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/di"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "exchange.db")
	return cfg
}

func run(t *testing.T, h *Handler, cfg *config.Config) (string, error) {
	t.Helper()
	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = h.Execute(context.Background(), cfg)
	})
	return out, execErr
}

func TestHandler_Name(t *testing.T) {
	h := &Handler{}
	assert.Equal(t, constants.ActExchangeCleanup, h.Name())
	assert.Contains(t, h.Description(), "BR_CLEANUP_DAYS")
}

func TestHandler_Registration(t *testing.T) {
	command.Reset()
	t.Cleanup(command.Reset)

	require.NoError(t, RegisterCmd())
	_, ok := command.Get("nr-exchange-cleanup")
	assert.True(t, ok)
}

func TestExecute_ПустойЖурнал(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFormat = "json"
	cfg.CleanupDays = 7

	out, err := run(t, &Handler{}, cfg)
	require.NoError(t, err)

	var res struct {
		output.Result
		Data Data `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, output.StatusSuccess, res.Status)
	assert.Equal(t, Data{RetentionDays: 7, Removed: 0}, res.Data)
	require.NotNil(t, res.Metadata.Summary)
	assert.Contains(t, res.Metadata.Summary.KeyMetrics,
		output.KeyMetric{Name: "Срок хранения", Value: "7", Unit: "дн"})
}

func TestExecute_ТекстовыйВывод(t *testing.T) {
	cfg := testConfig(t)

	out, err := run(t, &Handler{}, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "nr-exchange-cleanup: success")
	assert.Contains(t, out, "Удалено записей журнала: 0 шт")
}

func TestExecute_ОшибкаЗависимостей(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputFormat = "json"
	h := &Handler{newApp: func(*config.Config, metrics.Collector) (*di.App, func(), error) {
		return nil, nil, errors.New("нет соединения")
	}}

	out, err := run(t, h, cfg)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCommandExec))

	var res output.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, output.StatusError, res.Status)
	assert.Equal(t, apperrors.ErrCommandExec, res.Error.Code)
}

func TestExecute_DryRun(t *testing.T) {
	t.Setenv("BR_DRY_RUN", "1")
	cfg := testConfig(t)
	h := &Handler{newApp: func(*config.Config, metrics.Collector) (*di.App, func(), error) {
		t.Fatal("в dry-run зависимости не создаются")
		return nil, nil, nil
	}}

	out, err := run(t, h, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "1. cleanup: удаление записей журнала обмена старше 30 дней")
	assert.NoFileExists(t, cfg.Database.Path)
}
