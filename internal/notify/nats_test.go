package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *server.Server {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	natsServer := test.RunServer(&opts)
	t.Cleanup(natsServer.Shutdown)

	return natsServer
}

func TestNATS(t *testing.T) {
	natsServer := startTestServer(t)

	subscriberConn, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)
	defer subscriberConn.Close()

	sub, err := subscriberConn.SubscribeSync("voicetrust.fraud")
	require.NoError(t, err)
	require.NoError(t, subscriberConn.Flush())

	testee, err := Connect(natsServer.ClientURL(), "voicetrust.fraud")
	require.NoError(t, err)

	a, err := trust.DefaultPolicy().Assess([]float64{0.25, 0.75})
	require.NoError(t, err)

	log := fraudlog.New(fraudlog.NewMemory(10), testee)
	defer log.Close()

	entry, err := log.Record(context.Background(), fraudlog.SourceWebhook, "CA42", a)
	require.NoError(t, err)

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "25", msg.Header.Get("Trust-Score"))
	require.Equal(t, "BLOCKED", msg.Header.Get("Bank-Status"))

	var received fraudlog.Entry
	err = json.Unmarshal(msg.Data, &received)
	require.NoError(t, err)
	require.Equal(t, entry.ID, received.ID)
	require.Equal(t, "CA42", received.CallSID)
	require.Equal(t, 25, received.TrustScore)

	require.NoError(t, testee.Close())
}

func TestNATSConnectError(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "voicetrust.fraud")
	require.Error(t, err)
}
