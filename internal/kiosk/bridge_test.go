package kiosk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeEnvelopeDecode(t *testing.T) {
	raw := `{"id":7,"method":"setConfig","params":{"key":"dockSize","value":"large"}}`
	var env bridgeEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, int64(7), env.ID)
	assert.Equal(t, "setConfig", env.Method)
	assert.Equal(t, "dockSize", env.Params.Key)
	assert.Equal(t, "large", env.Params.Value)
}

func TestBridgeEnvelopeDecodeEmptyParams(t *testing.T) {
	var env bridgeEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"method":"reload","params":{}}`), &env))
	assert.Equal(t, "reload", env.Method)
	assert.Empty(t, env.Params.URL)
}

func TestWebURLFiltersLocalPages(t *testing.T) {
	assert.True(t, webURL("http://umbrel.local"))
	assert.True(t, webURL("https://10.21.0.5:3000/app"))
	assert.False(t, webURL("data:text/html;base64,PGh0bWw+"))
	assert.False(t, webURL("about:blank"))
	assert.False(t, webURL("chrome-error://chromewebdata/"))
}

func TestDispatchTableCoversAllKinds(t *testing.T) {
	kinds := []ctrlKind{
		evWillNavigate, evCommitted, evCommittedInPage, evWindowOpen,
		evLoadFailed, evCrashed, evHeartbeatMiss, evHeartbeatOK,
		evProbeOnline, evBridgeCall, evApplyLayers, evReloadCurrent,
		evFocusRequest, evSettingsChanged,
	}
	for _, k := range kinds {
		assert.Contains(t, handlers, k)
	}
}

func TestBridgeResultShapes(t *testing.T) {
	ok := okResult()
	assert.Equal(t, true, ok["ok"])

	fail := failResult("boom")
	assert.Equal(t, false, fail["ok"])
	assert.Equal(t, "boom", fail["error"])
}
