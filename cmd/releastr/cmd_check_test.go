package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapters "github.com/zapstore/releastr/internal/domain-adapters/gateways"
	"github.com/zapstore/releastr/internal/domain/entities"
)

// stubRelay answers every subscription with the same stored records
func stubRelay(t *testing.T, stored ...*entities.PublicationRecord) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg []json.RawMessage
			if err := json.Unmarshal(data, &msg); err != nil || len(msg) < 2 {
				continue
			}
			var typ, subID string
			_ = json.Unmarshal(msg[0], &typ)
			_ = json.Unmarshal(msg[1], &subID)
			if typ != "REQ" {
				continue
			}
			for _, rec := range stored {
				_ = conn.WriteJSON([]interface{}{"EVENT", subID, rec})
			}
			_ = conn.WriteJSON([]interface{}{"EOSE", subID})
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func localPackage(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.apk")
	require.NoError(t, os.WriteFile(path, []byte("local package"), 0o600))
	digest, err := adapters.Digest(path)
	require.NoError(t, err)
	return path, digest
}

func TestCheckCommand_DigestAlreadyPublished(t *testing.T) {
	apk, digest := localPackage(t)
	relay := stubRelay(t, &entities.PublicationRecord{
		ID: "prior", PubKey: "owner", Kind: entities.KindFileMetadata,
		Tags: entities.Tags{{"x", digest}},
	})

	out, err := execute(t, "check", "local-only", "--config", writeAppFile(t), "--relay", relay, "--apk", apk)
	require.NoError(t, err)

	assert.Contains(t, out, "digest "+digest)
	assert.Contains(t, out, "1 prior record(s)")
	assert.Contains(t, out, "- prior by owner")
	assert.Contains(t, out, "local-only is already published")
}

func TestCheckCommand_NotPublished(t *testing.T) {
	apk, _ := localPackage(t)
	relay := stubRelay(t, &entities.PublicationRecord{
		ID: "other", Kind: entities.KindFileMetadata, Tags: entities.Tags{{"x", "ffff"}},
	})

	out, err := execute(t, "check", "local-only", "--config", writeAppFile(t), "--relay", relay, "--apk", apk)
	require.NoError(t, err)

	assert.Contains(t, out, "no prior records")
	assert.Contains(t, out, "local-only would be published")
}

func TestCheckCommand_NothingToCheck(t *testing.T) {
	_, err := execute(t, "check", "local-only", "--config", writeAppFile(t), "--relay", stubRelay(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --apk")
}
