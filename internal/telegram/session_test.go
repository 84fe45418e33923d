package telegram

import (
	"encoding/json"
	"testing"

	"github.com/celestix/gotgproto/storage"
	"github.com/gotd/td/session"
	"github.com/stretchr/testify/require"
)

func TestConvertSession(t *testing.T) {
	data := &session.Data{
		DC:        2,
		Addr:      "149.154.167.50:443",
		AuthKey:   []byte{1, 2, 3},
		AuthKeyID: []byte{4, 5, 6},
	}

	sess, err := ConvertSession(data)
	require.NoError(t, err)
	require.Equal(t, storage.LatestVersion, sess.Version)

	// gotgproto reads the raw session.Data JSON back out of the Data column
	var roundtrip session.Data
	require.NoError(t, json.Unmarshal(sess.Data, &roundtrip))
	require.Equal(t, data.DC, roundtrip.DC)
	require.Equal(t, data.Addr, roundtrip.Addr)
	require.Equal(t, data.AuthKey, roundtrip.AuthKey)
}

func TestConvertSession_NilData(t *testing.T) {
	_, err := ConvertSession(nil)
	require.Error(t, err)
}
