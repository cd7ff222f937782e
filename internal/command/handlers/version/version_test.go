package version

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/testutil"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler_Name(t *testing.T) {
	h := &VersionHandler{}
	assert.Equal(t, "nr-version", h.Name())
	assert.Equal(t, constants.ActVersion, h.Name())
	assert.NotEmpty(t, h.Description())
}

func TestVersionHandler_Registration(t *testing.T) {
	command.Reset()
	t.Cleanup(command.Reset)

	require.NoError(t, RegisterCmd())
	h, ok := command.Get(constants.ActVersion)
	require.True(t, ok, "handler nr-version должен быть зарегистрирован в registry")
	assert.IsType(t, &VersionHandler{}, h)
}

func TestVersionHandler_Execute_JSONOutput(t *testing.T) {
	t.Setenv("BR_OUTPUT_FORMAT", "json")

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		execErr = (&VersionHandler{}).Execute(context.Background(), nil)
	})
	require.NoError(t, execErr)

	schema, err := jsonschema.NewCompiler().Compile(
		filepath.Join("..", "..", "..", "pkg", "output", "testdata", "schema", "result.schema.json"))
	require.NoError(t, err)
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(out))
	require.NoError(t, err)
	assert.NoError(t, schema.Validate(doc), "вывод должен соответствовать схеме Result")

	var result struct {
		output.Result
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, output.StatusSuccess, result.Status)
	assert.Equal(t, "nr-version", result.Command)
	assert.Equal(t, runtime.Version(), result.Data.GoVersion)
	assert.NotEmpty(t, result.Data.Version)
	assert.NotEmpty(t, result.Data.Commit)
	assert.Equal(t, "EnterpriseData", result.Data.Format)
	assert.Equal(t, "1.11", result.Data.DefaultFormatVersion)
}

func TestVersionHandler_Execute_TextOutput(t *testing.T) {
	t.Setenv("BR_OUTPUT_FORMAT", "json")

	var execErr error
	out := testutil.CaptureStdout(t, func() {
		// Формат из конфигурации приоритетнее окружения.
		execErr = (&VersionHandler{}).Execute(context.Background(), &config.Config{OutputFormat: "text"})
	})

	require.NoError(t, execErr)
	assert.Contains(t, out, "apk-exchange version")
	assert.Contains(t, out, "Go:     "+runtime.Version())
	assert.Contains(t, out, "Commit:")
	assert.Contains(t, out, "Format: EnterpriseData 1.11")
}

func TestVersionHandler_Execute_Metadata(t *testing.T) {
	t.Setenv("BR_OUTPUT_FORMAT", "json")

	tests := []struct {
		name    string
		traceID string
	}{
		{"trace_id из контекста", tracing.GenerateTraceID()},
		{"trace_id генерируется", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.traceID != "" {
				ctx = tracing.WithTraceID(ctx, tt.traceID)
			}

			var execErr error
			out := testutil.CaptureStdout(t, func() {
				execErr = (&VersionHandler{}).Execute(ctx, nil)
			})
			require.NoError(t, execErr)

			var result output.Result
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			require.NotNil(t, result.Metadata)
			if tt.traceID != "" {
				assert.Equal(t, tt.traceID, result.Metadata.TraceID)
			} else {
				assert.Len(t, result.Metadata.TraceID, 32)
			}
			assert.GreaterOrEqual(t, result.Metadata.DurationMs, int64(0))
			assert.Equal(t, constants.APIVersion, result.Metadata.APIVersion)
		})
	}
}

func TestBuildVersionData_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		wantVersion string
		wantCommit  string
	}{
		{"оба пустые - fallback", "", "", "dev", "unknown"},
		{"version пустой", "", "abc1234", "dev", "abc1234"},
		{"commit пустой", "1.0.0", "", "1.0.0", "unknown"},
		{"оба заданы", "1.0.0", "abc1234", "1.0.0", "abc1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildVersionData(tt.version, tt.commit)
			assert.Equal(t, tt.wantVersion, data.Version)
			assert.Equal(t, tt.wantCommit, data.Commit)
			assert.Equal(t, runtime.Version(), data.GoVersion)
		})
	}
}
