package smoketest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты подменяют os.Stdout, t.Parallel() не используется.

// smokeResult - минимальная структура JSON вывода.
type smokeResult struct {
	Status  string `json:"status"`
	Command string `json:"command"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var exchangeCommands = []string{
	constants.ActExchangeRun,
	constants.ActExchangeReceive,
	constants.ActExchangeSend,
	constants.ActExchangeConfirm,
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	cfg.OutputFormat = "json"
	return cfg
}

func run(t *testing.T, name string, cfg *config.Config) (smokeResult, error) {
	t.Helper()
	h, ok := command.Get(name)
	require.True(t, ok)

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = h.Execute(context.Background(), cfg)
	})
	var res smokeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), "JSON вывод должен быть валидным: %s", out)
	return res, execErr
}

func TestSmoke_ExchangeWithoutConnectors(t *testing.T) {
	for _, name := range exchangeCommands {
		t.Run(name, func(t *testing.T) {
			res, err := run(t, name, loadConfig(t))
			require.Error(t, err)
			assert.Equal(t, "error", res.Status)
			assert.Equal(t, name, res.Command)
			require.NotNil(t, res.Error)
			assert.Equal(t, "CONFIG.VALIDATION_FAILED", res.Error.Code)
			assert.NotEmpty(t, res.Error.Message)
		})
	}
}

func TestSmoke_DryRun(t *testing.T) {
	t.Setenv(constants.EnvDryRun, "true")
	for _, name := range append(exchangeCommands, constants.ActExchangeCleanup) {
		t.Run(name, func(t *testing.T) {
			cfg := loadConfig(t)
			// База данных не открывается в dry-run: путь в несуществующем каталоге.
			cfg.Database.Path = filepath.Join(t.TempDir(), "missing", "exchange.db")
			cfg.Exchange.Connectors = []config.ConnectorConfig{{
				Name:         "erp",
				OwnNode:      "APK",
				PeerNode:     "ERP",
				ExchangePlan: "СинхронизацияДанныхЧерезУниверсальныйФормат",
				Transport:    config.TransportConfig{Type: "local", Directory: t.TempDir()},
			}}

			res, err := run(t, name, cfg)
			require.NoError(t, err)
			assert.Equal(t, "success", res.Status)
			assert.Equal(t, name, res.Command)
		})
	}
}
