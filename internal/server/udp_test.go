package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jroosing/dnsforward/internal/dnswire"
	"github.com/jroosing/dnsforward/internal/server"
)

type fakePipeline struct {
	answer dnswire.Answer
	err    error
}

func (f fakePipeline) Run(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	return f.answer.WithID(q.ID), f.err
}

func TestServerRoundTrip(t *testing.T) {
	answer := dnswire.NewIPv4Answer(0, dnswire.Question{Name: "example.com", Type: dnswire.TypeA, Class: dnswire.ClassIN}, []dnswire.IPv4Answer{
		{Name: "example.com", TTL: 30, Addr: [4]byte{9, 9, 9, 9}},
	})

	srv, err := server.New(server.Options{Host: "127.0.0.1", Port: 0, Pipeline: fakePipeline{answer: answer}})
	require.NoError(t, err)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	client, err := net.Dial("udp", srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	q := dnswire.Query{
		ID:    0xabcd,
		Flags: dnswire.FlagRD,
		Question: dnswire.Question{
			Name:  "example.com",
			Type:  dnswire.TypeA,
			Class: dnswire.ClassIN,
		},
	}
	wire, err := q.Marshal(q.ID)
	require.NoError(t, err)

	_, err = client.Write(wire)
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := client.Read(buf)
	require.NoError(t, err)

	got, err := dnswire.ParseAnswer(buf[:n])
	require.NoError(t, err)
	require.Equal(t, uint16(0xabcd), got.ID)
	require.Equal(t, [4]byte{9, 9, 9, 9}, got.IPv4[0].Addr)
}
